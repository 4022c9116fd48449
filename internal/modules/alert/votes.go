package alert

// VoteKind selects which direction a vote toggle applies to.
type VoteKind string

const (
	VoteUp   VoteKind = "up"
	VoteDown VoteKind = "down"
)

// VoteState is the vote portion of an alert document, small enough to reason
// about as a value.
type VoteState struct {
	Upvotes   []string
	Downvotes []string
}

func contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func remove(set []string, id string) []string {
	out := make([]string, 0, len(set))
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Toggle applies one vote action for userID and returns the next state.
// Voting the same direction twice retracts the vote; voting the opposite
// direction switches it. The two sets stay disjoint and the counts always
// equal the set sizes, so they can never go negative.
func Toggle(state VoteState, userID string, kind VoteKind) VoteState {
	next := VoteState{
		Upvotes:   append([]string(nil), state.Upvotes...),
		Downvotes: append([]string(nil), state.Downvotes...),
	}

	switch kind {
	case VoteUp:
		if contains(next.Upvotes, userID) {
			next.Upvotes = remove(next.Upvotes, userID)
		} else {
			next.Downvotes = remove(next.Downvotes, userID)
			next.Upvotes = append(next.Upvotes, userID)
		}
	case VoteDown:
		if contains(next.Downvotes, userID) {
			next.Downvotes = remove(next.Downvotes, userID)
		} else {
			next.Upvotes = remove(next.Upvotes, userID)
			next.Downvotes = append(next.Downvotes, userID)
		}
	}
	return next
}
