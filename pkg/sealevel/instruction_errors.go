package sealevel

import "errors"

// instruction errors
var (
	InstrErrGenericError                = errors.New("InstrErrGenericError")
	InstrErrInvalidArgument             = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidInstructionData      = errors.New("InstrErrInvalidInstructionData")
	InstrErrInvalidAccountData          = errors.New("InstrErrInvalidAccountData")
	InstrErrAccountDataTooSmall         = errors.New("InstrErrAccountDataTooSmall")
	InstrErrInsufficientFunds           = errors.New("InstrErrInsufficientFunds")
	InstrErrIncorrectProgramId          = errors.New("InstrErrIncorrectProgramId")
	InstrErrMissingRequiredSignature    = errors.New("InstrErrMissingRequiredSignature")
	InstrErrAccountAlreadyInitialized   = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUninitializedAccount        = errors.New("InstrErrUninitializedAccount")
	InstrErrModifiedProgramId           = errors.New("InstrErrModifiedProgramId")
	InstrErrExternalAccountLamportSpend = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrExternalAccountDataModified = errors.New("InstrErrExternalAccountDataModified")
	InstrErrReadonlyLamportChange       = errors.New("InstrErrReadonlyLamportChange")
	InstrErrReadonlyDataModified        = errors.New("InstrErrReadonlyDataModified")
	InstrErrNotEnoughAccountKeys        = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrAccountDataSizeChanged      = errors.New("InstrErrAccountDataSizeChanged")
	InstrErrAccountNotExecutable        = errors.New("InstrErrAccountNotExecutable")
	InstrErrAccountBorrowFailed         = errors.New("InstrErrAccountBorrowFailed")
	InstrErrExecutableDataModified      = errors.New("InstrErrExecutableDataModified")
	InstrErrExecutableLamportChange     = errors.New("InstrErrExecutableLamportChange")
	InstrErrUnsupportedProgramId        = errors.New("InstrErrUnsupportedProgramId")
	InstrErrCallDepth                   = errors.New("InstrErrCallDepth")
	InstrErrMissingAccount              = errors.New("InstrErrMissingAccount")
	InstrErrReentrancyNotAllowed        = errors.New("InstrErrReentrancyNotAllowed")
	InstrErrInvalidRealloc              = errors.New("InstrErrInvalidRealloc")
	InstrErrComputationalBudgetExceeded = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrPrivilegeEscalation         = errors.New("InstrErrPrivilegeEscalation")
	InstrErrArithmeticOverflow          = errors.New("InstrErrArithmeticOverflow")
	InstrErrUnsupportedSysvar           = errors.New("InstrErrUnsupportedSysvar")
	InstrErrMaxInstructionTraceLength   = errors.New("InstrErrMaxInstructionTraceLengthExceeded")
)

// instruction errors - Solana numerical error codes
const (
	InstrErrCodeGenericError                = 0
	InstrErrCodeInvalidArgument             = 1
	InstrErrCodeInvalidInstructionData      = 2
	InstrErrCodeInvalidAccountData          = 3
	InstrErrCodeAccountDataTooSmall         = 4
	InstrErrCodeInsufficientFunds           = 5
	InstrErrCodeIncorrectProgramId          = 6
	InstrErrCodeMissingRequiredSignature    = 7
	InstrErrCodeAccountAlreadyInitialized   = 8
	InstrErrCodeUninitializedAccount        = 9
	InstrErrCodeModifiedProgramId           = 11
	InstrErrCodeExternalAccountLamportSpend = 12
	InstrErrCodeExternalAccountDataModified = 13
	InstrErrCodeReadonlyLamportChange       = 14
	InstrErrCodeReadonlyDataModified        = 15
	InstrErrCodeNotEnoughAccountKeys        = 19
	InstrErrCodeAccountDataSizeChanged      = 20
	InstrErrCodeAccountNotExecutable        = 21
	InstrErrCodeAccountBorrowFailed         = 22
	InstrErrCodeCustom                      = 25
	InstrErrCodeExecutableDataModified      = 27
	InstrErrCodeExecutableLamportChange     = 28
	InstrErrCodeUnsupportedProgramId        = 30
	InstrErrCodeCallDepth                   = 31
	InstrErrCodeMissingAccount              = 32
	InstrErrCodeReentrancyNotAllowed        = 33
	InstrErrCodeInvalidRealloc              = 36
	InstrErrCodeComputationalBudgetExceeded = 37
	InstrErrCodePrivilegeEscalation         = 38
	InstrErrCodeArithmeticOverflow          = 47
	InstrErrCodeUnsupportedSysvar           = 48
)

var instrErrCodes = map[error]int{
	InstrErrGenericError:                InstrErrCodeGenericError,
	InstrErrInvalidArgument:             InstrErrCodeInvalidArgument,
	InstrErrInvalidInstructionData:      InstrErrCodeInvalidInstructionData,
	InstrErrInvalidAccountData:          InstrErrCodeInvalidAccountData,
	InstrErrAccountDataTooSmall:         InstrErrCodeAccountDataTooSmall,
	InstrErrInsufficientFunds:           InstrErrCodeInsufficientFunds,
	InstrErrIncorrectProgramId:          InstrErrCodeIncorrectProgramId,
	InstrErrMissingRequiredSignature:    InstrErrCodeMissingRequiredSignature,
	InstrErrAccountAlreadyInitialized:   InstrErrCodeAccountAlreadyInitialized,
	InstrErrUninitializedAccount:        InstrErrCodeUninitializedAccount,
	InstrErrModifiedProgramId:           InstrErrCodeModifiedProgramId,
	InstrErrExternalAccountLamportSpend: InstrErrCodeExternalAccountLamportSpend,
	InstrErrExternalAccountDataModified: InstrErrCodeExternalAccountDataModified,
	InstrErrReadonlyLamportChange:       InstrErrCodeReadonlyLamportChange,
	InstrErrReadonlyDataModified:        InstrErrCodeReadonlyDataModified,
	InstrErrNotEnoughAccountKeys:        InstrErrCodeNotEnoughAccountKeys,
	InstrErrAccountDataSizeChanged:      InstrErrCodeAccountDataSizeChanged,
	InstrErrAccountNotExecutable:        InstrErrCodeAccountNotExecutable,
	InstrErrAccountBorrowFailed:         InstrErrCodeAccountBorrowFailed,
	InstrErrExecutableDataModified:      InstrErrCodeExecutableDataModified,
	InstrErrExecutableLamportChange:     InstrErrCodeExecutableLamportChange,
	InstrErrUnsupportedProgramId:        InstrErrCodeUnsupportedProgramId,
	InstrErrCallDepth:                   InstrErrCodeCallDepth,
	InstrErrMissingAccount:              InstrErrCodeMissingAccount,
	InstrErrReentrancyNotAllowed:        InstrErrCodeReentrancyNotAllowed,
	InstrErrInvalidRealloc:              InstrErrCodeInvalidRealloc,
	InstrErrComputationalBudgetExceeded: InstrErrCodeComputationalBudgetExceeded,
	InstrErrPrivilegeEscalation:         InstrErrCodePrivilegeEscalation,
	InstrErrArithmeticOverflow:          InstrErrCodeArithmeticOverflow,
	InstrErrUnsupportedSysvar:           InstrErrCodeUnsupportedSysvar,
}

// CustomErr is a program-defined error. The host reports it as a custom
// instruction error carrying Code.
type CustomErr struct {
	Code uint32
	Err  error
}

func (e *CustomErr) Error() string {
	return e.Err.Error()
}

func (e *CustomErr) Unwrap() error {
	return e.Err
}

// TranslateErrToInstrErrCode maps an execution error onto the numeric
// instruction error code, along with the custom code for program errors.
func TranslateErrToInstrErrCode(err error) (code int, custom uint32) {
	var customErr *CustomErr
	if errors.As(err, &customErr) {
		return InstrErrCodeCustom, customErr.Code
	}
	for instrErr, c := range instrErrCodes {
		if errors.Is(err, instrErr) {
			return c, 0
		}
	}
	return InstrErrCodeGenericError, 0
}
