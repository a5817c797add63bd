package errors

import (
	"encoding/json"
)

// ErrorResponse is the flat JSON shape the command-line front end prints
// when asked for machine-readable output.
//
// The wrapped error chain is excluded; host paths and OS error strings stay
// out of the output while Code, Message and Context remain.
type ErrorResponse struct {
	// Code is the error code identifying the type of error.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Context contains optional metadata about the error.
	Context map[string]interface{} `json:"context,omitempty"`
}

// ToJSON converts any error to an ErrorResponse.
// Returns nil if err is nil.
//
// For standard errors, the code is CodeUnknown and the message is err.Error().
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	message := err.Error()
	var context map[string]interface{}

	var storeErr StoreError
	if As(err, &storeErr) {
		message = storeErr.Message()
		context = storeErr.Context()
	}

	return &ErrorResponse{
		Code:    string(GetCode(err)),
		Message: message,
		Context: context,
	}
}

// MarshalJSON implements json.Marshaler for storeError.
func (e *storeError) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(&ErrorResponse{
		Code:    string(e.code),
		Message: e.message,
		Context: e.context,
	})
	if err != nil {
		return nil, &storeError{
			code:    CodeInternal,
			message: "failed to marshal error response",
			cause:   err,
		}
	}
	return data, nil
}
