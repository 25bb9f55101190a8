// Package result provides the uniform outcome type returned by the
// application service: a value on success, or a not-found / invalid outcome
// carrying field-level messages.
package result

// Status classifies the outcome of an operation.
type Status int

const (
	StatusSuccess Status = iota
	StatusNotFound
	StatusInvalid
)

// String returns a lowercase name for the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ValidationError names an input field and what is wrong with it.
type ValidationError struct {
	Identifier string `json:"field"`
	Message    string `json:"message"`
}

// Result is the outcome of a command or query.
type Result[T any] struct {
	Status  Status
	Value   T
	Message string
	Errors  []ValidationError
}

// Empty is the value type for commands that return nothing.
type Empty struct{}

// Success wraps a value.
func Success[T any](value T) Result[T] {
	return Result[T]{Status: StatusSuccess, Value: value}
}

// Ok is a successful Result with no value.
func Ok() Result[Empty] {
	return Success(Empty{})
}

// NotFound reports a missing entity.
func NotFound[T any](message string) Result[T] {
	return Result[T]{Status: StatusNotFound, Message: message}
}

// Invalid reports a business-rule rejection with one or more field errors.
func Invalid[T any](errs ...ValidationError) Result[T] {
	return Result[T]{Status: StatusInvalid, Errors: errs}
}

// IsSuccess reports whether the result carries a value.
func (r Result[T]) IsSuccess() bool {
	return r.Status == StatusSuccess
}
