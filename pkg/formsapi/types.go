package formsapi

import (
	"encoding/json"
	"time"
)

// FormPayload is the body accepted by the forms API on create and update.
type FormPayload struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	IsMultiStep bool            `json:"isMultiStep"`
	JSONSchema  json.RawMessage `json:"json_schema"`
}

// FormRecord is a stored form as returned by the API.
type FormRecord struct {
	ID          int64           `json:"id"`
	DocumentID  string          `json:"documentId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	IsMultiStep bool            `json:"isMultiStep"`
	JSONSchema  json.RawMessage `json:"json_schema"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Envelope wraps every request and response body.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// ErrorBody is the error shape returned by the API.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
