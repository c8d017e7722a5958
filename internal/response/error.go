package response

import (
	"encoding/json"
	"strings"
)

// ErrorDetail represents an additional error detail in an OData error document.
type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// ServiceError is the error reported by a remote service.
type ServiceError struct {
	Code    string
	Message string
	Target  string
	Details []ErrorDetail
}

// errorDocument accepts the v4 form ("message" is a string) and the v2 form
// ("message" is an object with a "value").
type errorDocument struct {
	Error struct {
		Code    string          `json:"code"`
		Message json.RawMessage `json:"message"`
		Target  string          `json:"target"`
		Details []ErrorDetail   `json:"details"`
	} `json:"error"`
}

// ParseError extracts the service error from an error response body. It
// returns nil if the body is not an OData error document.
func ParseError(body []byte) *ServiceError {
	var doc errorDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	e := doc.Error
	if e.Code == "" && len(e.Message) == 0 {
		return nil
	}

	out := &ServiceError{Code: e.Code, Target: e.Target, Details: e.Details}
	var msg string
	if err := json.Unmarshal(e.Message, &msg); err == nil {
		out.Message = msg
		return out
	}
	var v2 struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(e.Message, &v2); err == nil {
		out.Message = v2.Value
	} else {
		out.Message = strings.TrimSpace(string(e.Message))
	}
	return out
}
