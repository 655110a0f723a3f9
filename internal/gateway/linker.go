package gateway

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// LinkedAccount is a wiki account linked to a chat-platform user.
type LinkedAccount struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// LinkerClient talks to the identity-linking API.
type LinkerClient struct {
	http *resty.Client
}

// NewLinkerClient creates a LinkerClient for the passed base URL and API key.
func NewLinkerClient(baseURL, apiKey string, timeout time.Duration) *LinkerClient {
	return &LinkerClient{http: newAPIClient(baseURL, apiKey, timeout)}
}

// AccountList returns the linked wiki accounts for each of the passed
// chat-platform subject ids. Subjects without linked accounts map to an empty
// slice.
func (c *LinkerClient) AccountList(ctx context.Context, subjectIDs []string) (
	map[string][]LinkedAccount, error,
) {
	var result struct {
		Result map[string][]LinkedAccount `json:"result"`
	}
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"subject_ids": subjectIDs}).
		SetResult(&result).
		SetError(apiErr).
		Post("/accounts/list")
	if err != nil {
		return nil, errors.Wrap(err, "linker: account list")
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, apiErr
	}
	return result.Result, nil
}
