package staffapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commkit/steward/storage"
	"github.com/commkit/steward/storage/model"
)

// fakeService records the service calls the handlers delegate to.
type fakeService struct {
	revoked []uint
	closed  []uint
	cancels []bool
}

func (f *fakeService) RevokeGrant(_ context.Context, g model.DelegationGrant) error {
	f.revoked = append(f.revoked, g.ID)
	return nil
}

func (f *fakeService) CloseTicket(_ context.Context, ticketID uint, cancel bool) error {
	f.closed = append(f.closed, ticketID)
	f.cancels = append(f.cancels, cancel)
	return nil
}

func setupAPI(t *testing.T) (*fiber.App, model.Backends, *fakeService) {
	t.Helper()
	backs, err := storage.LoadStorageBackends(
		storage.Config{
			Driver:  storage.DriverSQLite,
			DataDir: t.TempDir(),
		},
	)
	require.NoError(t, err)

	svc := &fakeService{}
	app := fiber.New()
	Register(app.Group("/api/v1/staff"), backs, svc)
	return app, backs, svc
}

func request(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGrantEndpoints(t *testing.T) {
	app, backs, svc := setupAPI(t)

	grant := &model.DelegationGrant{
		SubjectID:    "alice",
		AccountID:    100,
		SiteID:       1,
		GrantedLevel: model.LevelModerator,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, backs.Grants.Enqueue(grant))

	resp := request(t, app, http.MethodGet, "/api/v1/staff/grants/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grants []model.DelegationGrant
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&grants))
	require.Len(t, grants, 1)

	resp = request(t, app, http.MethodGet, "/api/v1/staff/grants/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// DELETE revokes on the wiki side before removing the row.
	resp = request(t, app, http.MethodDelete, "/api/v1/staff/grants/1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []uint{grant.ID}, svc.revoked)
	remaining, err := backs.Grants.List()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestTicketEndpoints(t *testing.T) {
	app, backs, svc := setupAPI(t)

	ticket := &model.Ticket{
		ChannelID:        "staff",
		SummaryMessageID: "sum1",
		CreatedBy:        "creator",
		Title:            "test",
		Recipients: []model.TicketRecipient{
			{SubjectID: "alice", Status: model.StatusPending},
		},
	}
	require.NoError(t, backs.Tickets.Create(ticket))

	resp := request(t, app, http.MethodGet, "/api/v1/staff/tickets/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Ticket
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "test", got.Title)

	resp = request(
		t, app, http.MethodPost, "/api/v1/staff/tickets/1/close",
		map[string]bool{"cancel": true},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []uint{1}, svc.closed)
	assert.Equal(t, []bool{true}, svc.cancels)

	resp = request(t, app, http.MethodDelete, "/api/v1/staff/tickets/1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = request(t, app, http.MethodDelete, "/api/v1/staff/tickets/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoleGroupEndpoints(t *testing.T) {
	app, _, _ := setupAPI(t)

	resp := request(
		t, app, http.MethodPost, "/api/v1/staff/role-groups/",
		map[string]string{"name": "tech-team", "description": "site techs", "created_by": "admin"},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = request(
		t, app, http.MethodPost, "/api/v1/staff/role-groups/",
		map[string]string{"name": "tech-team"},
	)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = request(
		t, app, http.MethodPost, "/api/v1/staff/role-groups/tech-team/roles",
		map[string]string{"role_id": "r1"},
	)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = request(t, app, http.MethodGet, "/api/v1/staff/role-groups/tech-team", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var group model.RoleGroup
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&group))
	require.Len(t, group.Roles, 1)
	assert.Equal(t, "r1", group.Roles[0].RoleID)

	resp = request(t, app, http.MethodDelete, "/api/v1/staff/role-groups/tech-team/roles/r1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = request(t, app, http.MethodDelete, "/api/v1/staff/role-groups/tech-team", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = request(t, app, http.MethodGet, "/api/v1/staff/role-groups/tech-team", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotifyChannelEndpoints(t *testing.T) {
	app, _, _ := setupAPI(t)

	resp := request(
		t, app, http.MethodPost, "/api/v1/staff/notify-channels/",
		map[string]string{"purpose": model.NotifyPurposeDelegation, "channel_id": "staff-a"},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = request(
		t, app, http.MethodPost, "/api/v1/staff/notify-channels/",
		map[string]string{"purpose": "nonsense", "channel_id": "staff-a"},
	)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = request(
		t, app, http.MethodGet,
		"/api/v1/staff/notify-channels/?purpose="+model.NotifyPurposeDelegation, nil,
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var channels []model.NotifyChannel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&channels))
	require.Len(t, channels, 1)

	resp = request(
		t, app, http.MethodDelete,
		"/api/v1/staff/notify-channels/"+model.NotifyPurposeDelegation+"/staff-a", nil,
	)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = request(
		t, app, http.MethodDelete,
		"/api/v1/staff/notify-channels/"+model.NotifyPurposeDelegation+"/staff-a", nil,
	)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
