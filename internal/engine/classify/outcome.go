// Package classify decides whether a predicted call is compatible with the
// ground-truth call of a benchmark task.
package classify

import "strings"

// Outcome is the five-way classification of a predicted statement.
type Outcome int

const (
	// Correct: same API with an acceptable argument shape.
	Correct Outcome = iota
	// BCR: a breaking-change mismatch, either another API or an argument
	// shape the signature rejects.
	BCR
	// Uncertain: same API but arguments cannot be checked.
	Uncertain
	// Other: the prediction holds no call.
	Other
	// Empty: nothing was predicted.
	Empty
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{Correct, BCR, Uncertain, Other, Empty}

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "CR"
	case BCR:
		return "BCR"
	case Uncertain:
		return "UNCERTAIN"
	case Other:
		return "OTHERS"
	case Empty:
		return "EMPTY"
	}
	return "UNKNOWN"
}

// ParseOutcome maps the String form (case-insensitive) back to an Outcome.
func ParseOutcome(value string) (Outcome, bool) {
	for _, o := range Outcomes {
		if strings.EqualFold(o.String(), strings.TrimSpace(value)) {
			return o, true
		}
	}
	return 0, false
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, ok := ParseOutcome(string(text))
	if !ok {
		return &outcomeError{value: string(text)}
	}
	*o = parsed
	return nil
}

type outcomeError struct{ value string }

func (e *outcomeError) Error() string { return "unknown outcome " + e.value }

const (
	ReasonNoCall          = "No Function Call"
	ReasonNameMismatch    = "Method Name Mismatch"
	ReasonVariableArgs    = "have variable args"
	ReasonUnparsedArgs    = "Cannot Parse Arguments"
	ReasonArgumentOrder   = "Invalid Argument Order"
	ReasonArgumentCount   = "Argument Count Error"
	ReasonInvalidKeyword  = "Invalid Keyword"
	ReasonExactMatch      = "Exact Match"
	ReasonCompatibleMatch = ""
)

// Verdict is the terminal result for one (predicted, ground truth) pair.
type Verdict struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	// PredictedFQN and ExpectedFQN are set once names were resolved.
	PredictedFQN string `json:"predicted_fqn,omitempty"`
	ExpectedFQN  string `json:"expected_fqn,omitempty"`
}
