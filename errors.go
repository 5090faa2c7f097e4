package ctm

import "github.com/pkg/errors"

var (
	// ErrConfiguration reports invalid model parameters or malformed
	// initial tensors. It is raised at construction and never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNumerical reports a failed decomposition or non-finite tensors
	// during renormalization. The run aborts with its last valid state.
	ErrNumerical = errors.New("numerical failure")
)
