package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// PermissionLevel is the membership tier an account holds on a site.
type PermissionLevel int

// Constants for PermissionLevel
const (
	PermissionMember    PermissionLevel = 1
	PermissionModerator PermissionLevel = 2
	PermissionAdmin     PermissionLevel = 3
)

// String returns the canonical string representation for the level.
func (l PermissionLevel) String() string {
	switch l {
	case PermissionMember:
		return "member"
	case PermissionModerator:
		return "moderator"
	case PermissionAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Machine-readable error codes returned by the membership API.
const (
	// ErrCodeNotPrivileged means the account does not (or no longer does)
	// hold the privilege a removal action targets. Revocation treats it as
	// success.
	ErrCodeNotPrivileged = "not_privileged"
	// ErrCodeNotFound means the referenced site or account does not exist.
	ErrCodeNotFound = "not_found"
)

// APIError is a structured failure response from the membership or linker API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// IsNotPrivileged reports whether err is an APIError carrying
// ErrCodeNotPrivileged.
func IsNotPrivileged(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == ErrCodeNotPrivileged
	}
	return false
}

// Site is a wiki site managed through the membership API.
type Site struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// Membership is one site membership of a wiki account.
type Membership struct {
	SiteID int64           `json:"site_id"`
	Level  PermissionLevel `json:"permission_level"`
}

// Account is a wiki account with its site memberships.
type Account struct {
	ID          int64        `json:"id"`
	Username    string       `json:"username"`
	Memberships []Membership `json:"site_memberships"`
}

// Privilege change actions accepted by the membership API.
func GrantAction(level string) string  { return "to_" + level }
func RevokeAction(level string) string { return "remove_" + level }

// MembershipClient talks to the membership management API. All calls carry a
// bounded timeout; timeouts and 5xx responses are retried a bounded number of
// times, 4xx responses are terminal.
type MembershipClient struct {
	http *resty.Client
}

// NewMembershipClient creates a MembershipClient for the passed base URL and
// API key.
func NewMembershipClient(baseURL, apiKey string, timeout time.Duration) *MembershipClient {
	return &MembershipClient{http: newAPIClient(baseURL, apiKey, timeout)}
}

func newAPIClient(baseURL, apiKey string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(
			func(r *resty.Response, err error) bool {
				// Retry network failures and server-side errors only.
				return err != nil || r.StatusCode() >= 500
			},
		)
}

// ListSites returns all sites managed through the membership API.
func (c *MembershipClient) ListSites(ctx context.Context) ([]Site, error) {
	var sites []Site
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&sites).
		SetError(apiErr).
		Get("/sites")
	if err != nil {
		return nil, errors.Wrap(err, "membership: list sites")
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, apiErr
	}
	return sites, nil
}

// GetUser returns a wiki account with its site memberships.
func (c *MembershipClient) GetUser(ctx context.Context, accountID int64) (*Account, error) {
	var account Account
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&account).
		SetError(apiErr).
		Get(fmt.Sprintf("/users/%d", accountID))
	if err != nil {
		return nil, errors.Wrapf(err, "membership: get user %d", accountID)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, apiErr
	}
	return &account, nil
}

// ChangePrivilege applies a privilege action for the account on the site.
func (c *MembershipClient) ChangePrivilege(ctx context.Context, siteID, accountID int64, action string) error {
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"action": action}).
		SetError(apiErr).
		Post(fmt.Sprintf("/sites/%d/members/%d/privilege", siteID, accountID))
	if err != nil {
		return errors.Wrapf(err, "membership: change privilege on site %d", siteID)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}
