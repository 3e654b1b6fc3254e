package v1

// Errors
const (
	UnknownErrorCode    = 0
	UnknownErrorMessage = "unknown error"

	RateLimitedCode          = 2001
	RateLimitedMessage       = "too many code requests, wait before requesting a new one"
	InvalidOrExpiredCode     = 2002
	InvalidOrExpiredMessage  = "verification code invalid or expired"
	TooManyAttemptsCode      = 2003
	TooManyAttemptsMessage   = "too many verification attempts, request a new code"
	DeliveryFailedCode       = 2004
	DeliveryFailedMessage    = "could not deliver the verification code"
	RateLimitNotFoundCode    = 2005
	RateLimitNotFoundMessage = "no rate limit record for user"
)

type ErrorCode int
type ErrorMessage string

type ErrorStruct struct {
	ErrorCode    `json:"error_code"`
	ErrorMessage `json:"error_message"`
} // @name ErrorStruct

type ValidationErrorStruct struct {
	ErrorCode    int               `json:"error_code"`
	ErrorMessage string            `json:"error_message"`
	Errors       []ValidationError `json:"validation_errors"`
}

type ValidationError struct {
	FieldKey     string `json:"field_key"`
	ErrorMessage string `json:"error_message"`
}

func getErrorStruct(code ErrorCode) *ErrorStruct {
	errorStruct := &ErrorStruct{
		ErrorCode:    UnknownErrorCode,
		ErrorMessage: UnknownErrorMessage,
	}

	switch code {
	case RateLimitedCode:
		errorStruct.ErrorCode = RateLimitedCode
		errorStruct.ErrorMessage = RateLimitedMessage
	case InvalidOrExpiredCode:
		errorStruct.ErrorCode = InvalidOrExpiredCode
		errorStruct.ErrorMessage = InvalidOrExpiredMessage
	case TooManyAttemptsCode:
		errorStruct.ErrorCode = TooManyAttemptsCode
		errorStruct.ErrorMessage = TooManyAttemptsMessage
	case DeliveryFailedCode:
		errorStruct.ErrorCode = DeliveryFailedCode
		errorStruct.ErrorMessage = DeliveryFailedMessage
	case RateLimitNotFoundCode:
		errorStruct.ErrorCode = RateLimitNotFoundCode
		errorStruct.ErrorMessage = RateLimitNotFoundMessage
	}

	return errorStruct
}
