package extract

// Status tags the outcome of an extraction.
type Status int

const (
	// StatusEmpty means the model produced no usable output.
	StatusEmpty Status = iota
	// StatusParsed means a value was decoded and validated.
	StatusParsed
	// StatusInvalid means output was present but malformed or failed validation.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusParsed:
		return "parsed"
	case StatusInvalid:
		return "invalid"
	default:
		return "empty"
	}
}

// Result is the tagged outcome of an extraction. Value is meaningful only
// when Status is StatusParsed.
type Result[T any] struct {
	Value  T
	Status Status
	Reason string
}

// Parsed wraps a validated value.
func Parsed[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusParsed}
}

// Invalid records why output was rejected.
func Invalid[T any](reason string) Result[T] {
	return Result[T]{Status: StatusInvalid, Reason: reason}
}

// Empty records that there was nothing to parse.
func Empty[T any](reason string) Result[T] {
	return Result[T]{Status: StatusEmpty, Reason: reason}
}

// Ok reports whether the result carries a value.
func (r Result[T]) Ok() bool {
	return r.Status == StatusParsed
}
