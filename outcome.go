package prompta

// Outcome tags how one collect cycle resolved. Every cycle produces exactly
// one terminal outcome; OutcomeReject is the only non-terminal value and
// appears in hooks and logs each time an input is rejected.
type Outcome string

const (
	// OutcomeAccept: the transform accepted an input and produced new data.
	OutcomeAccept Outcome = "accept"
	// OutcomeReject: the transform rejected an input; the cycle stays open.
	OutcomeReject Outcome = "reject"
	// OutcomeExit: the user ended the conversation voluntarily.
	OutcomeExit Outcome = "exit"
	// OutcomeInactivity: the collection duration elapsed without an accept.
	OutcomeInactivity Outcome = "inactivity"
	// OutcomeError: the cycle failed; the error propagates out of the run.
	OutcomeError Outcome = "error"
)
