package batch

// VerdictKind classifies one structured attempt.
type VerdictKind int

const (
	// VerdictValid: the reply parsed and validated; Value holds the result.
	VerdictValid VerdictKind = iota
	// VerdictCorrectable: the reply was malformed but a correction turn may fix it.
	VerdictCorrectable
	// VerdictExhausted: the correction budget ran out; Err is terminal.
	VerdictExhausted
)

// Verdict is the explicit outcome of one structured attempt. Modeling this as
// a value rather than control flow keeps the retry bound auditable and lets
// the classification step be tested in isolation.
type Verdict struct {
	Kind  VerdictKind
	Value any
	Err   error
}

// Valid wraps a successfully validated value.
func Valid(value any) Verdict { return Verdict{Kind: VerdictValid, Value: value} }

// Correctable wraps a failure that a format-correction turn may repair.
func Correctable(err error) Verdict { return Verdict{Kind: VerdictCorrectable, Err: err} }

// Exhausted wraps a terminal format failure.
func Exhausted(err error) Verdict { return Verdict{Kind: VerdictExhausted, Err: err} }
