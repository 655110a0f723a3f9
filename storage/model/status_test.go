package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from, to RecipientStatus
		allowed  bool
	}{
		{StatusPending, StatusDone, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusCanceled, true},
		{StatusPending, StatusPending, false},
		{StatusDone, StatusPending, true},
		{StatusDone, StatusExpired, false},
		{StatusDone, StatusCanceled, false},
		{StatusExpired, StatusPending, false},
		{StatusExpired, StatusDone, false},
		{StatusCanceled, StatusPending, false},
		{StatusCanceled, StatusDone, false},
	}
	for _, c := range cases {
		assert.Equalf(
			t, c.allowed, c.from.CanTransition(c.to),
			"%s -> %s", c.from, c.to,
		)
	}
}

func TestRecipientStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusDone.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusCanceled.Terminal())
}

func TestRecipientStatusJSON(t *testing.T) {
	data, err := json.Marshal(StatusExpired)
	require.NoError(t, err)
	assert.Equal(t, `"expired"`, string(data))

	var s RecipientStatus
	require.NoError(t, json.Unmarshal([]byte(`"canceled"`), &s))
	assert.Equal(t, StatusCanceled, s)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`4`), &s))
}
