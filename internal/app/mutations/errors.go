package mutations

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Error codes for the mutation layer's failure taxonomy.
const (
	CodeKeyReuseConflict   = "KEY_REUSE_CONFLICT"
	CodeRevisionConflict   = "REVISION_CONFLICT"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

func errKeyReuse() *Error {
	return &Error{
		Status:  409,
		Code:    CodeKeyReuseConflict,
		Message: "idempotency key reused with a different payload",
	}
}

func errRevisionConflict(current int64) *Error {
	return &Error{
		Status:  409,
		Code:    CodeRevisionConflict,
		Message: "stale expected revision",
		Details: map[string]any{"currentRevision": current},
	}
}

func errValidation(message string, details map[string]any) *Error {
	return &Error{Status: 422, Code: CodeValidationError, Message: message, Details: details}
}

func errStorage(err error) *Error {
	return &Error{
		Status:  503,
		Code:    CodeStorageUnavailable,
		Message: "storage unavailable: " + err.Error(),
	}
}
