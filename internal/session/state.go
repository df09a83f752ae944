// Package session models one user's working state: the uploaded image, its
// metrics, the filter parameters, the pending recommendation and the applied
// output, plus the rules for moving between display states.
package session

// DisplayState is what the user currently sees for the uploaded image
type DisplayState string

const (
	StateNoImage   DisplayState = "no_image"
	StateUploaded  DisplayState = "uploaded"
	StateSuggested DisplayState = "suggested"
	StateApplied   DisplayState = "applied"
)

func (s DisplayState) String() string {
	return string(s)
}

// HasImage reports whether an image is loaded in this state
func (s DisplayState) HasImage() bool {
	return s != StateNoImage
}

// Outcome tells the caller what happened to a finished recommendation
type Outcome int

const (
	// OutcomeAccepted means the recommendation is now attached to the image
	OutcomeAccepted Outcome = iota
	// OutcomeDiscarded means the image changed or was reset while it ran
	OutcomeDiscarded
	// OutcomeAlreadySettled means this run was already recorded
	OutcomeAlreadySettled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeAlreadySettled:
		return "already_settled"
	default:
		return "unknown"
	}
}
