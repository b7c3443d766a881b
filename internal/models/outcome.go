package models

// OutcomeKind classifies how an execution attempt concluded.
type OutcomeKind string

const (
	OutcomeSuccess         OutcomeKind = "success"
	OutcomeFailure         OutcomeKind = "failure"
	OutcomeTimeout         OutcomeKind = "timeout"
	OutcomeDeserialization OutcomeKind = "deserialization_error"
)

// Outcome is the result of a single completed execution attempt, as
// reported by the worker that ran it.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

func Failure(msg string) Outcome {
	return Outcome{Kind: OutcomeFailure, Message: msg}
}

func Timeout(msg string) Outcome {
	return Outcome{Kind: OutcomeTimeout, Message: msg}
}

// DeserializationFailure reports a payload that could not be reconstructed
// at execution time. The decision procedure treats it like any other
// failure; the distinguished kind keeps the error text attributable.
func DeserializationFailure(msg string) Outcome {
	return Outcome{Kind: OutcomeDeserialization, Message: msg}
}

// Ok reports whether the attempt succeeded. Failure, timeout and
// deserialization errors all count as Err.
func (o Outcome) Ok() bool {
	return o.Kind == OutcomeSuccess
}
