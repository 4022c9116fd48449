package alert

import (
	"testing"

	"github.com/motohub/core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestToggleAddsVote(t *testing.T) {
	next := Toggle(VoteState{}, "u1", VoteUp)
	assert.Equal(t, []string{"u1"}, next.Upvotes)
	assert.Empty(t, next.Downvotes)
}

func TestToggleSameDirectionRetracts(t *testing.T) {
	state := Toggle(VoteState{}, "u1", VoteUp)
	next := Toggle(state, "u1", VoteUp)
	assert.Empty(t, next.Upvotes)
	assert.Empty(t, next.Downvotes)
}

func TestToggleOppositeDirectionSwitches(t *testing.T) {
	state := Toggle(VoteState{}, "u1", VoteUp)
	next := Toggle(state, "u1", VoteDown)
	assert.Empty(t, next.Upvotes)
	assert.Equal(t, []string{"u1"}, next.Downvotes)
}

func TestToggleKeepsOtherVoters(t *testing.T) {
	state := VoteState{Upvotes: []string{"u1", "u2"}, Downvotes: []string{"u3"}}

	next := Toggle(state, "u2", VoteDown)
	assert.Equal(t, []string{"u1"}, next.Upvotes)
	assert.ElementsMatch(t, []string{"u3", "u2"}, next.Downvotes)
}

func TestToggleDoesNotMutateInput(t *testing.T) {
	state := VoteState{Upvotes: []string{"u1"}}
	_ = Toggle(state, "u1", VoteUp)
	assert.Equal(t, []string{"u1"}, state.Upvotes)
}

func TestToggleSetsStayDisjoint(t *testing.T) {
	state := VoteState{}
	users := []string{"a", "b", "c"}
	kinds := []VoteKind{VoteUp, VoteDown, VoteUp, VoteDown, VoteDown, VoteUp}

	for _, u := range users {
		for _, k := range kinds {
			state = Toggle(state, u, k)
			for _, up := range state.Upvotes {
				assert.NotContains(t, state.Downvotes, up)
			}
		}
	}
}

func TestViewForMarksVoterFlags(t *testing.T) {
	doc := &models.AlertDocument{
		Upvotes:   []string{"u1"},
		Downvotes: []string{"u2"},
	}

	v := ViewFor(doc, "u1")
	assert.True(t, v.HasUpvoted)
	assert.False(t, v.HasDownvoted)

	v = ViewFor(doc, "u2")
	assert.False(t, v.HasUpvoted)
	assert.True(t, v.HasDownvoted)

	v = ViewFor(doc, "")
	assert.False(t, v.HasUpvoted)
	assert.False(t, v.HasDownvoted)
}
