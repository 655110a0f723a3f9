package steward

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commkit/steward/internal/gateway"
	"github.com/commkit/steward/storage/model"
)

func enqueueGrant(t *testing.T, s *Steward, subjectID string, siteID int64, expiresAt time.Time) *model.DelegationGrant {
	t.Helper()
	grant := &model.DelegationGrant{
		SubjectID:       subjectID,
		AccountID:       100,
		SiteID:          siteID,
		GrantedLevel:    model.LevelModerator,
		NotifyChannelID: "staff",
		NotifyMessageID: "notice-" + subjectID,
		ExpiresAt:       expiresAt,
	}
	require.NoError(t, s.stores.Grants.Enqueue(grant))
	return grant
}

func TestRevokeExpiredRevokesAndRemoves(t *testing.T) {
	s, env := newTestSteward(t)
	now := time.Now()
	expired := enqueueGrant(t, s, "alice", 1, now.Add(-time.Minute))
	active := enqueueGrant(t, s, "bob", 1, now.Add(time.Hour))

	require.NoError(t, s.RevokeExpired(context.Background(), now))

	require.Len(t, env.gw.Changes, 1)
	assert.Equal(t, gateway.RevokeAction(model.LevelModerator), env.gw.Changes[0].Action)
	assert.Equal(t, int64(100), env.gw.Changes[0].AccountID)

	_, err := s.stores.Grants.Get(expired.ID)
	assert.IsType(t, model.NotFoundError(""), err)
	remaining, err := s.stores.Grants.Get(active.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", remaining.SubjectID)

	// Completion notice replied to the escalation notice, which is then
	// cleaned up.
	require.Len(t, env.msgr.Replies, 1)
	assert.Contains(t, env.msgr.Replies[0].Content, "privileges removed")
	require.Len(t, env.msgr.Deleted, 1)
	assert.Equal(t, "notice-alice", env.msgr.Deleted[0].MessageID)
}

func TestRevokeExpiredRemovesRowOnGatewayFailure(t *testing.T) {
	s, env := newTestSteward(t)
	now := time.Now()
	grant := enqueueGrant(t, s, "alice", 1, now.Add(-time.Minute))
	env.gw.ChangeErr = &gateway.APIError{Status: 502, Code: "server_error", Message: "boom"}

	require.NoError(t, s.RevokeExpired(context.Background(), now))

	_, err := s.stores.Grants.Get(grant.ID)
	assert.IsType(t, model.NotFoundError(""), err, "a failing gateway must not wedge the queue")
}

func TestRevokeExpiredTreatsNotPrivilegedAsSuccess(t *testing.T) {
	s, env := newTestSteward(t)
	now := time.Now()
	enqueueGrant(t, s, "alice", 1, now.Add(-time.Minute))
	env.gw.ChangeErr = &gateway.APIError{
		Status: 409, Code: gateway.ErrCodeNotPrivileged, Message: "User is not moderator",
	}

	require.NoError(t, s.RevokeExpired(context.Background(), now))

	grants, err := s.stores.Grants.List()
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestRevokeExpiredVisitsEachGrantOnce(t *testing.T) {
	s, env := newTestSteward(t)
	now := time.Now()
	enqueueGrant(t, s, "alice", 1, now.Add(-time.Minute))
	enqueueGrant(t, s, "alice", 2, now.Add(-time.Minute))

	require.NoError(t, s.RevokeExpired(context.Background(), now))
	require.NoError(t, s.RevokeExpired(context.Background(), now))

	assert.Len(t, env.gw.Changes, 2)
}

func TestRevokeExpiredSkipsNoticeWithoutRef(t *testing.T) {
	s, env := newTestSteward(t)
	now := time.Now()
	grant := &model.DelegationGrant{
		SubjectID:    "alice",
		AccountID:    100,
		SiteID:       1,
		GrantedLevel: model.LevelAdmin,
		ExpiresAt:    now.Add(-time.Minute),
	}
	require.NoError(t, s.stores.Grants.Enqueue(grant))

	require.NoError(t, s.RevokeExpired(context.Background(), now))

	assert.Empty(t, env.msgr.Replies)
	grants, err := s.stores.Grants.List()
	require.NoError(t, err)
	assert.Empty(t, grants)
}
