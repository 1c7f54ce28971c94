package domain

// ScreeningRule is an analyst-defined CEL expression evaluated against each
// record of a batch. Matches are reported as screening hits alongside the
// fixed scorers; they do not contribute to either score.
type ScreeningRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// CEL expression over record variables; must evaluate to bool.
	Expression string `json:"expression"`

	// Reason reported when the rule matches.
	Reason string `json:"reason"`

	Enabled bool `json:"enabled"`
}
