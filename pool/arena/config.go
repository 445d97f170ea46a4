package arena

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/internal/format"
)

// Config controls arena sizing and where its memory comes from.
type Config struct {
	// InitialSize is used by handle.New when creating and initializing an arena.
	InitialSize int

	// MaxSize is the ceiling no buffer may exceed.
	MaxSize int

	// GrowthFactor scales the capacity on each growth step. Must be > 1.
	GrowthFactor float64

	// Source supplies backing buffers. Nil means backing.OS.
	Source backing.Source
}

// DefaultConfig is the configuration used when none is provided.
var DefaultConfig = Config{
	InitialSize:  64 << 10,
	MaxSize:      1 << 30,
	GrowthFactor: 1.5,
	Source:       backing.OS,
}

// Validate checks the configuration for values the arena cannot work with.
func (c Config) Validate() error {
	switch {
	case c.MaxSize < format.MinSegmentSize:
		return errors.Newf("arena: max size %d below minimum segment %d", c.MaxSize, format.MinSegmentSize)
	case c.MaxSize > format.MaxSegmentSize:
		return errors.Newf("arena: max size %d exceeds %d", c.MaxSize, format.MaxSegmentSize)
	case c.GrowthFactor <= 1:
		return errors.Newf("arena: growth factor %.2f must be greater than 1", c.GrowthFactor)
	case c.InitialSize < 0 || c.InitialSize > c.MaxSize:
		return errors.Newf("arena: initial size %d outside [0, %d]", c.InitialSize, c.MaxSize)
	}
	return nil
}

func (c Config) source() backing.Source {
	if c.Source == nil {
		return backing.OS
	}
	return c.Source
}
