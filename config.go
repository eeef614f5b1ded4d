package loom

import (
	"fmt"
	"time"

	"github.com/loomwm/loom/wire"
)

// Config holds the compositor core's tunables. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// Socket is the rendezvous socket path. Empty means the path
	// derived from the environment by wire.SocketPath.
	Socket string

	// FrameRate is the render tick frequency in Hz.
	FrameRate int

	// MaxClients bounds the number of simultaneous connections.
	MaxClients int

	// RecvBuffer bounds each connection's buffered-but-undecoded
	// bytes. Exceeding it is fatal for that connection.
	RecvBuffer int

	// PoolBudget is the buffer pool's byte budget. Zero means
	// unlimited.
	PoolBudget int64
}

func DefaultConfig() Config {
	return Config{
		FrameRate:  60,
		MaxClients: 32,
		RecvBuffer: wire.DefaultRecvBuffer,
		PoolBudget: 64 << 20,
	}
}

// FrameInterval is the loop's bounded wait between render ticks.
func (cfg Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(cfg.FrameRate)
}

func (cfg Config) Validate() error {
	if cfg.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %v", cfg.FrameRate)
	}
	if cfg.MaxClients <= 0 {
		return fmt.Errorf("max clients must be positive, got %v", cfg.MaxClients)
	}
	if cfg.RecvBuffer < wire.HeaderSize+wire.MaxPayload {
		return fmt.Errorf("receive buffer %v cannot hold a maximum-size message", cfg.RecvBuffer)
	}
	if cfg.PoolBudget < 0 {
		return fmt.Errorf("pool budget must not be negative, got %v", cfg.PoolBudget)
	}
	return nil
}
