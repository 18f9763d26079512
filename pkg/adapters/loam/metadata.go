package loam

// StepMeta is the front matter of one step document. The markdown body
// below it is what the step says.
type StepMeta struct {
	// ID overrides the document id (normally the filename without
	// extension) as the step's key.
	ID string `json:"id" mapstructure:"id"`

	// Start marks this document as the flow's entry step. At most one
	// document may carry it; without it the step named "start" opens
	// the flow.
	Start bool `json:"start" mapstructure:"start"`

	// Terminal marks a closing step.
	Terminal bool `json:"terminal" mapstructure:"terminal"`

	// Input configures what the step collects.
	Input *InputMeta `json:"input" mapstructure:"input"`

	// Next lists candidate successors in priority order.
	Next []NextMeta `json:"next" mapstructure:"next"`

	// Defaults seeds the conversation data. Honored on the start step
	// only.
	Defaults map[string]any `json:"defaults" mapstructure:"defaults"`

	// Config carries the run texts (exit_token, exit_response,
	// inactivity_response, rejection_response). Honored on the start
	// step only.
	Config map[string]any `json:"config" mapstructure:"config"`
}

// InputMeta mirrors a flow input in front matter form.
type InputMeta struct {
	Var       string `json:"var" mapstructure:"var"`
	Type      string `json:"type" mapstructure:"type"`
	Pattern   string `json:"pattern" mapstructure:"pattern"`
	Reject    string `json:"reject" mapstructure:"reject"`
	Transform string `json:"transform" mapstructure:"transform"`
	Timeout   string `json:"timeout" mapstructure:"timeout"`
}

// NextMeta is one candidate transition out of a step.
type NextMeta struct {
	To   string `json:"to" mapstructure:"to"`
	When string `json:"when" mapstructure:"when"`
}

type configMeta struct {
	ExitToken          *string `json:"exit_token" mapstructure:"exit_token"`
	ExitResponse       string  `json:"exit_response" mapstructure:"exit_response"`
	InactivityResponse string  `json:"inactivity_response" mapstructure:"inactivity_response"`
	RejectionResponse  *string `json:"rejection_response" mapstructure:"rejection_response"`
}
