package errors

// Error code constants attached to failure logs as error_code.
const (
	// Generation errors
	ErrEncodeFailed     = "ENCODE_FAILED"
	ErrOutputDirMissing = "OUTPUT_DIR_MISSING"
	ErrWriteFailed      = "WRITE_FAILED"
	ErrVerifyFailed     = "VERIFY_FAILED"

	// History errors
	ErrHistoryFailed   = "HISTORY_FAILED"
	ErrHistoryDisabled = "HISTORY_DISABLED"

	// General
	ErrInvalidConfig = "INVALID_CONFIG"
	ErrInternal      = "INTERNAL_ERROR"
)
