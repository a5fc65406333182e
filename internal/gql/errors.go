package gql

import "strings"

// GraphQLError is a single structured error returned by the data layer.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns the error code embedded in the extensions, empty when absent.
func (e GraphQLError) Code() string {
	if e.Extensions == nil {
		return ""
	}
	code, _ := e.Extensions["code"].(string)
	return code
}

// OperationError is the combined error attached to an operation result. Its
// shape mirrors the client library the storefront's downstream code pattern
// matches on: a top-level message, an optional transport-level error, and
// zero or more structured operation errors.
type OperationError struct {
	Message       string
	NetworkError  error
	GraphQLErrors []GraphQLError
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.NetworkError != nil {
		return e.NetworkError.Error()
	}
	parts := make([]string, 0, len(e.GraphQLErrors))
	for _, gqlErr := range e.GraphQLErrors {
		parts = append(parts, gqlErr.Message)
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the transport-level error to errors.Is/As.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.NetworkError
}

func newNetworkError(err error) *OperationError {
	return &OperationError{
		Message:      "[Network] " + err.Error(),
		NetworkError: err,
	}
}

func newOperationError(errs []GraphQLError) *OperationError {
	messages := make([]string, 0, len(errs))
	for _, gqlErr := range errs {
		messages = append(messages, gqlErr.Message)
	}
	return &OperationError{
		Message:       "[GraphQL] " + strings.Join(messages, "; "),
		GraphQLErrors: errs,
	}
}
