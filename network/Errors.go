package network

import (
	"errors"
	"fmt"
)

// ErrSmallBatch is returned by a training-mode forward pass whose
// batch is too small to estimate a sample variance. Normalization
// statistics are undefined for a single sample, so training mode
// requires a batch of at least two; evaluation mode accepts any batch.
var ErrSmallBatch = errors.New("batch must hold at least 2 samples in " +
	"training mode")

// ConfigError describes an invalid network configuration. It is
// returned at construction time and is fatal: the configuration must
// be corrected, not retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: invalid %v: %v", e.Field, e.Reason)
}

// DimensionError describes an input whose dimensions disagree with the
// dimensions a network was constructed with. It is a programming
// error, fatal to the call that caused it; the caller may retry with
// corrected input.
type DimensionError struct {
	Op   string
	Want int
	Have int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%v: invalid dimension \n\twant(%v) \n\thave(%v)",
		e.Op, e.Want, e.Have)
}
