package loom

// Presenter is the render/present collaborator. The loop calls it
// synchronously once per tick that produced a non-empty frame; actual
// pixel compositing and display output are its business.
type Presenter interface {
	Present(frame *Frame) error
}

// NopPresenter discards frames.
type NopPresenter struct{}

func (NopPresenter) Present(*Frame) error { return nil }
