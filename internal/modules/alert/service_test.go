package alert

import (
	"encoding/json"
	"testing"

	"github.com/motohub/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestActiveAlertFilterExcludesDeactivated(t *testing.T) {
	oid := primitive.NewObjectID()
	filter := activeAlertFilter(oid)

	assert.Equal(t, oid, filter["_id"])
	assert.Equal(t, true, filter["is_active"])
}

func TestClampNearbyLimit(t *testing.T) {
	assert.Equal(t, defaultNearbyLimit, clampNearbyLimit(0))
	assert.Equal(t, defaultNearbyLimit, clampNearbyLimit(-3))
	assert.Equal(t, defaultNearbyLimit, clampNearbyLimit(maxNearbyLimit+1))
	assert.Equal(t, 5, clampNearbyLimit(5))
	assert.Equal(t, maxNearbyLimit, clampNearbyLimit(maxNearbyLimit))
}

func TestViewForPayloadCarriesVoteState(t *testing.T) {
	doc := &models.AlertDocument{
		Upvotes:      []string{"u1"},
		Downvotes:    []string{},
		UpvotesCount: 1,
	}

	raw, err := json.Marshal(ViewFor(doc, "u1"))
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.EqualValues(t, 1, payload["upvotesCount"])
	assert.Equal(t, true, payload["hasUpvoted"])
	assert.Equal(t, false, payload["hasDownvoted"])
}
