package checkin

// State is the per-user conversation state consumed by the reply handlers.
// It is a closed set: Idle, AwaitingRating, or AwaitingDuration.
type State interface {
	// Tag is the stable string persisted in the conversation-state store.
	Tag() string
}

// Idle means no question is pending.
type Idle struct{}

func (Idle) Tag() string { return "idle" }

// AwaitingRating means a check-in question of the given type was sent and
// the next reply should be a 1-10 rating.
type AwaitingRating struct {
	Type Type
}

func (s AwaitingRating) Tag() string { return "awaiting_checkin_" + string(s.Type) }

// AwaitingDuration means the deep-work flow asked for a session length in
// minutes.
type AwaitingDuration struct{}

func (AwaitingDuration) Tag() string { return "awaiting_deepwork_duration" }

// ParseState reconstructs a State from its persisted tag. Unknown tags map
// to Idle so a stale or corrupted record can never wedge a conversation.
func ParseState(tag string) State {
	switch {
	case tag == "" || tag == "idle":
		return Idle{}
	case tag == "awaiting_deepwork_duration":
		return AwaitingDuration{}
	case len(tag) > len("awaiting_checkin_") && tag[:len("awaiting_checkin_")] == "awaiting_checkin_":
		t, err := ParseType(tag[len("awaiting_checkin_"):])
		if err != nil {
			return Idle{}
		}
		return AwaitingRating{Type: t}
	default:
		return Idle{}
	}
}

// RatingOutcome is the result of feeding a reply to an AwaitingRating state.
type RatingOutcome struct {
	// Next is the state after the reply: Idle on a valid rating, the same
	// AwaitingRating otherwise.
	Next State
	// Value is the parsed rating, set only when Recorded is true.
	Value int
	// Recorded reports whether the reply was a valid 1-10 rating.
	Recorded bool
	// Reply is the message to send back: tiered feedback or a retry prompt.
	Reply string
}

// HandleRating applies a user reply to a pending rating question. A valid
// rating transitions to Idle; anything else keeps the question pending and
// asks again.
func HandleRating(pending AwaitingRating, reply string) RatingOutcome {
	value, err := ParseRating(reply)
	if err != nil {
		return RatingOutcome{
			Next:  pending,
			Reply: RetryPrompt(err),
		}
	}

	return RatingOutcome{
		Next:     Idle{},
		Value:    value,
		Recorded: true,
		Reply:    Feedback(pending.Type, value),
	}
}
