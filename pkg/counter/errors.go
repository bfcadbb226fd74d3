package counter

import (
	"errors"
	"fmt"

	"go.firedancer.io/counter/pkg/sealevel"
)

// counter program custom error codes
const (
	CounterErrCodeMalformedInstruction = iota
	CounterErrCodeUnknownInstruction
	CounterErrCodeNotOwner
	CounterErrCodeAllocationFailed
	CounterErrCodeAccountAlreadyInitialized
	CounterErrCodeCorruptAccountData
	CounterErrCodeCounterOverflow
)

var (
	CounterErrMalformedInstruction      = errors.New("CounterErrMalformedInstruction")
	CounterErrUnknownInstruction        = errors.New("CounterErrUnknownInstruction")
	CounterErrNotOwner                  = errors.New("CounterErrNotOwner")
	CounterErrAllocationFailed          = errors.New("CounterErrAllocationFailed")
	CounterErrAccountAlreadyInitialized = errors.New("CounterErrAccountAlreadyInitialized")
	CounterErrCorruptAccountData        = errors.New("CounterErrCorruptAccountData")
	CounterErrCounterOverflow           = errors.New("CounterErrCounterOverflow")
)

var counterErrCodes = map[error]uint32{
	CounterErrMalformedInstruction:      CounterErrCodeMalformedInstruction,
	CounterErrUnknownInstruction:        CounterErrCodeUnknownInstruction,
	CounterErrNotOwner:                  CounterErrCodeNotOwner,
	CounterErrAllocationFailed:          CounterErrCodeAllocationFailed,
	CounterErrAccountAlreadyInitialized: CounterErrCodeAccountAlreadyInitialized,
	CounterErrCorruptAccountData:        CounterErrCodeCorruptAccountData,
	CounterErrCounterOverflow:           CounterErrCodeCounterOverflow,
}

// ErrorCode returns the custom program error code for err and whether err is
// a counter program error at all.
func ErrorCode(err error) (uint32, bool) {
	for counterErr, code := range counterErrCodes {
		if errors.Is(err, counterErr) {
			return code, true
		}
	}
	return 0, false
}

// counterErr reports err to the host as a custom program error. cause, if
// set, is kept in the chain so callers can still match on it.
func counterErr(err error, cause error) error {
	if cause != nil {
		err = fmt.Errorf("%w: %w", err, cause)
	}
	code, _ := ErrorCode(err)
	return &sealevel.CustomErr{Code: code, Err: err}
}
