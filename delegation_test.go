package steward

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commkit/steward/internal/gateway"
	"github.com/commkit/steward/storage/model"
)

func setupDelegation(env *testEnv) {
	env.gw.Sites = []gateway.Site{
		{ID: 1, Name: "scp-wiki", MemberCount: 100},
		{ID: 2, Name: "sandbox", MemberCount: 10},
	}
	env.gw.Accounts[100] = &gateway.Account{
		ID:       100,
		Username: "alice-wiki",
		Memberships: []gateway.Membership{
			{SiteID: 1, Level: gateway.PermissionModerator},
			{SiteID: 2, Level: gateway.PermissionAdmin},
		},
	}
	env.linker.Linked["alice"] = []gateway.LinkedAccount{{ID: 100, Username: "alice-wiki"}}
}

type selectRequest struct {
	SubjectID string `json:"subject_id"`
	ChannelID string `json:"channel_id"`
	SiteID    int64  `json:"site_id"`
}

func TestDelegationSelectGrantsMatchingTier(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "alice", ChannelID: "staff", SiteID: 1},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	grant := decodeJSON[model.DelegationGrant](t, resp)

	assert.Equal(t, model.LevelModerator, grant.GrantedLevel)
	assert.Equal(t, int64(100), grant.AccountID)
	require.Len(t, env.gw.Changes, 1)
	assert.Equal(t, "to_moderator", env.gw.Changes[0].Action)

	// The notice carries the revoke reference the grant row points at.
	require.Len(t, env.msgr.ChannelMsgs, 1)
	assert.Equal(t, env.msgr.ChannelMsgs[0].Ref.MessageID, grant.NotifyMessageID)
	assert.Contains(t, env.msgr.ChannelMsgs[0].Content, "SCP-WIKI")

	// Admin standing on the other site yields the admin tier.
	resp = postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "alice", ChannelID: "staff", SiteID: 2},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	grant = decodeJSON[model.DelegationGrant](t, resp)
	assert.Equal(t, model.LevelAdmin, grant.GrantedLevel)
	assert.Equal(t, "to_admin", env.gw.Changes[1].Action)
}

func TestDelegationSelectRejectsDuplicate(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "alice", ChannelID: "staff", SiteID: 1},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "alice", ChannelID: "staff", SiteID: 1},
	)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	// The wiki-side privilege is not granted a second time.
	assert.Len(t, env.gw.Changes, 1)
}

func TestDelegationSelectRequiresLinkedAccount(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "stranger", ChannelID: "staff", SiteID: 1},
	)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.gw.Changes)
}

func TestDelegationSelectDoesNotCacheEmptyLookups(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "bob", ChannelID: "staff", SiteID: 2},
	)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bob links an account right after the failed attempt; the next select
	// must see it instead of a cached empty result.
	env.gw.Accounts[200] = &gateway.Account{
		ID:       200,
		Username: "bob-wiki",
		Memberships: []gateway.Membership{
			{SiteID: 2, Level: gateway.PermissionAdmin},
		},
	}
	env.linker.Linked["bob"] = []gateway.LinkedAccount{{ID: 200, Username: "bob-wiki"}}

	resp = postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "bob", ChannelID: "staff", SiteID: 2},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	grant := decodeJSON[model.DelegationGrant](t, resp)
	assert.Equal(t, int64(200), grant.AccountID)
}

func TestDelegationSelectRequiresStanding(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)
	env.gw.Accounts[200] = &gateway.Account{
		ID:       200,
		Username: "bob-wiki",
		Memberships: []gateway.Membership{
			{SiteID: 1, Level: gateway.PermissionMember},
		},
	}
	env.linker.Linked["bob"] = []gateway.LinkedAccount{{ID: 200, Username: "bob-wiki"}}

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "bob", ChannelID: "staff", SiteID: 1},
	)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, env.gw.Changes)
}

func TestDelegationSelectSkipsUnfetchableAccounts(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)
	// The first linked account cannot be fetched; the second carries the
	// privilege.
	env.linker.Linked["alice"] = []gateway.LinkedAccount{
		{ID: 999, Username: "stale-link"},
		{ID: 100, Username: "alice-wiki"},
	}

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "alice", ChannelID: "staff", SiteID: 1},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	grant := decodeJSON[model.DelegationGrant](t, resp)
	assert.Equal(t, int64(100), grant.AccountID)
}

func TestDelegationSelectHonorsTTLOverride(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)
	require.NoError(
		t, s.stores.KV.Set(
			model.KeyValueScopeDelegation,
			fmt.Sprintf("%s:%d", model.KeyValueKeyGrantTTL, 1),
			7200,
		),
	)

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "alice", ChannelID: "staff", SiteID: 1},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	grant := decodeJSON[model.DelegationGrant](t, resp)

	assert.WithinDuration(t, time.Now().Add(2*time.Hour), grant.ExpiresAt, time.Minute)
}

func TestDelegationRevoke(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "alice", ChannelID: "staff", SiteID: 1},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	grant := decodeJSON[model.DelegationGrant](t, resp)

	resp = postJSON(
		t, s, "/interactions/delegation/revoke",
		map[string]string{
			"channel_id": grant.NotifyChannelID,
			"message_id": grant.NotifyMessageID,
		},
	)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Len(t, env.gw.Changes, 2)
	assert.Equal(t, "remove_moderator", env.gw.Changes[1].Action)
	grants, err := s.stores.Grants.List()
	require.NoError(t, err)
	assert.Empty(t, grants)

	// The notice is rewritten instead of deleted.
	require.Len(t, env.msgr.Edits, 1)
	assert.Equal(t, "Privileges revoked", env.msgr.Edits[0].Content)
}

func TestDelegationRevokeUnknownNotice(t *testing.T) {
	s, _ := newTestSteward(t)

	resp := postJSON(
		t, s, "/interactions/delegation/revoke",
		map[string]string{"channel_id": "staff", "message_id": "nope"},
	)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDelegationRevokeRejectsEmptyRefs(t *testing.T) {
	s, env := newTestSteward(t)
	setupDelegation(env)

	resp := postJSON(
		t, s, "/interactions/delegation/select",
		selectRequest{SubjectID: "alice", ChannelID: "staff", SiteID: 1},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A grant whose notice send failed would carry empty refs; empty input
	// must never resolve to such a row.
	resp = postJSON(
		t, s, "/interactions/delegation/revoke",
		map[string]string{"channel_id": "", "message_id": ""},
	)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	grants, err := s.stores.Grants.List()
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestRevokeGrantTreatsNotPrivilegedAsSuccess(t *testing.T) {
	s, env := newTestSteward(t)
	env.gw.ChangeErr = &gateway.APIError{
		Status: 409, Code: gateway.ErrCodeNotPrivileged, Message: "User is not admin",
	}
	err := s.RevokeGrant(
		context.Background(),
		model.DelegationGrant{SiteID: 1, AccountID: 100, GrantedLevel: model.LevelAdmin},
	)
	assert.NoError(t, err)
}

func TestDelegationPanelUsesRegisteredChannels(t *testing.T) {
	s, env := newTestSteward(t)
	_, err := s.stores.NotifyChannels.Register(model.NotifyPurposeDelegation, "staff-a")
	require.NoError(t, err)
	_, err = s.stores.NotifyChannels.Register(model.NotifyPurposeDelegation, "staff-b")
	require.NoError(t, err)

	resp := postJSON(t, s, "/interactions/delegation/panel", map[string]string{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Len(t, env.msgr.ChannelMsgs, 2)
	posted := []string{env.msgr.ChannelMsgs[0].To, env.msgr.ChannelMsgs[1].To}
	assert.ElementsMatch(t, []string{"staff-a", "staff-b"}, posted)
}
