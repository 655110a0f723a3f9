// Package messenger abstracts the chat-platform messaging REST API. The
// workflows only need a handful of primitives: post to a channel, send a
// private message, rewrite or reply to an existing message, and expand a role
// into its members.
package messenger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// MessageRef identifies a message on the chat platform.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// IsZero reports whether the ref is unset.
func (r MessageRef) IsZero() bool {
	return r.ChannelID == "" && r.MessageID == ""
}

// Member is a chat-platform user as seen through role expansion.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Bot         bool   `json:"bot"`
}

// Mention renders a user mention for the passed subject id.
func Mention(subjectID string) string {
	return "<@" + subjectID + ">"
}

// Messenger is the messaging surface the workflows depend on. The production
// implementation is RESTMessenger; tests substitute a fake.
type Messenger interface {
	// SendChannel posts content to a channel.
	SendChannel(ctx context.Context, channelID, content string) (MessageRef, error)
	// SendDirect sends a private message to a subject.
	SendDirect(ctx context.Context, subjectID, content string) (MessageRef, error)
	// EditMessage replaces the content of an existing message.
	EditMessage(ctx context.Context, ref MessageRef, content string) error
	// Reply posts content as a reply to an existing message.
	Reply(ctx context.Context, ref MessageRef, content string) (MessageRef, error)
	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, ref MessageRef) error
	// RoleMembers returns the members holding a role.
	RoleMembers(ctx context.Context, roleID string) ([]Member, error)
	// Member returns a single member by subject id.
	Member(ctx context.Context, subjectID string) (*Member, error)
}

// RESTMessenger implements Messenger against the chat platform's REST API.
type RESTMessenger struct {
	http *resty.Client
}

// New creates a RESTMessenger for the passed base URL and bot token.
func New(baseURL, token string, timeout time.Duration) *RESTMessenger {
	return &RESTMessenger{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(token).
			SetTimeout(timeout),
	}
}

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("messenger api error %d (%s): %s", e.Status, e.Code, e.Message)
}

func (m *RESTMessenger) post(ctx context.Context, path string, body, result any) error {
	apiErr := &apiError{}
	req := m.http.R().SetContext(ctx).SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Post(path)
	if err != nil {
		return errors.Wrapf(err, "messenger: POST %s", path)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

// SendChannel posts content to a channel
func (m *RESTMessenger) SendChannel(ctx context.Context, channelID, content string) (MessageRef, error) {
	var ref MessageRef
	err := m.post(
		ctx, fmt.Sprintf("/channels/%s/messages", channelID),
		map[string]string{"content": content}, &ref,
	)
	return ref, err
}

// SendDirect sends a private message to a subject
func (m *RESTMessenger) SendDirect(ctx context.Context, subjectID, content string) (MessageRef, error) {
	var ref MessageRef
	err := m.post(
		ctx, fmt.Sprintf("/users/%s/messages", subjectID),
		map[string]string{"content": content}, &ref,
	)
	return ref, err
}

// EditMessage replaces the content of an existing message
func (m *RESTMessenger) EditMessage(ctx context.Context, ref MessageRef, content string) error {
	return m.post(
		ctx, fmt.Sprintf("/channels/%s/messages/%s/edit", ref.ChannelID, ref.MessageID),
		map[string]string{"content": content}, nil,
	)
}

// Reply posts content as a reply to an existing message
func (m *RESTMessenger) Reply(ctx context.Context, ref MessageRef, content string) (MessageRef, error) {
	var out MessageRef
	err := m.post(
		ctx, fmt.Sprintf("/channels/%s/messages/%s/reply", ref.ChannelID, ref.MessageID),
		map[string]string{"content": content}, &out,
	)
	return out, err
}

// DeleteMessage removes a message
func (m *RESTMessenger) DeleteMessage(ctx context.Context, ref MessageRef) error {
	return m.post(
		ctx, fmt.Sprintf("/channels/%s/messages/%s/delete", ref.ChannelID, ref.MessageID),
		nil, nil,
	)
}

// RoleMembers returns the members holding a role
func (m *RESTMessenger) RoleMembers(ctx context.Context, roleID string) ([]Member, error) {
	var members []Member
	apiErr := &apiError{}
	resp, err := m.http.R().
		SetContext(ctx).
		SetResult(&members).
		SetError(apiErr).
		Get(fmt.Sprintf("/roles/%s/members", roleID))
	if err != nil {
		return nil, errors.Wrapf(err, "messenger: role members %s", roleID)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, apiErr
	}
	return members, nil
}

// Member returns a single member by subject id
func (m *RESTMessenger) Member(ctx context.Context, subjectID string) (*Member, error) {
	var member Member
	apiErr := &apiError{}
	resp, err := m.http.R().
		SetContext(ctx).
		SetResult(&member).
		SetError(apiErr).
		Get(fmt.Sprintf("/users/%s", subjectID))
	if err != nil {
		return nil, errors.Wrapf(err, "messenger: member %s", subjectID)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, apiErr
	}
	return &member, nil
}
