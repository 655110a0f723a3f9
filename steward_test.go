package steward

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/commkit/steward/internal/cache"
	"github.com/commkit/steward/internal/gateway"
	"github.com/commkit/steward/internal/messenger"
	"github.com/commkit/steward/storage"
	"github.com/commkit/steward/storage/model"
)

// sentMessage records one outbound message of the fake messenger.
type sentMessage struct {
	Ref     messenger.MessageRef
	To      string
	Content string
}

// fakeMessenger implements messenger.Messenger in memory.
type fakeMessenger struct {
	mu  sync.Mutex
	seq int

	ChannelMsgs []sentMessage
	DirectMsgs  []sentMessage
	Replies     []sentMessage
	Edits       []sentMessage
	Deleted     []messenger.MessageRef

	Members map[string]messenger.Member
	Roles   map[string][]messenger.Member

	// FailDirectFor makes SendDirect fail for the listed subject ids.
	FailDirectFor map[string]bool
	// FailChannel makes every SendChannel fail.
	FailChannel bool
	// FailReply makes every Reply fail.
	FailReply bool
	// FailEdit makes every EditMessage fail.
	FailEdit bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		Members:       make(map[string]messenger.Member),
		Roles:         make(map[string][]messenger.Member),
		FailDirectFor: make(map[string]bool),
	}
}

func (f *fakeMessenger) nextRef(channelID string) messenger.MessageRef {
	f.seq++
	return messenger.MessageRef{
		ChannelID: channelID,
		MessageID: fmt.Sprintf("m%d", f.seq),
	}
}

func (f *fakeMessenger) SendChannel(_ context.Context, channelID, content string) (
	messenger.MessageRef, error,
) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailChannel {
		return messenger.MessageRef{}, fmt.Errorf("cannot post to %s", channelID)
	}
	ref := f.nextRef(channelID)
	f.ChannelMsgs = append(f.ChannelMsgs, sentMessage{Ref: ref, To: channelID, Content: content})
	return ref, nil
}

func (f *fakeMessenger) SendDirect(_ context.Context, subjectID, content string) (
	messenger.MessageRef, error,
) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDirectFor[subjectID] {
		return messenger.MessageRef{}, fmt.Errorf("cannot message %s", subjectID)
	}
	ref := f.nextRef("dm-" + subjectID)
	f.DirectMsgs = append(f.DirectMsgs, sentMessage{Ref: ref, To: subjectID, Content: content})
	return ref, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, ref messenger.MessageRef, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailEdit {
		return fmt.Errorf("cannot edit %s", ref.MessageID)
	}
	f.Edits = append(f.Edits, sentMessage{Ref: ref, Content: content})
	return nil
}

func (f *fakeMessenger) Reply(_ context.Context, ref messenger.MessageRef, content string) (
	messenger.MessageRef, error,
) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReply {
		return messenger.MessageRef{}, fmt.Errorf("cannot reply to %s", ref.MessageID)
	}
	reply := f.nextRef(ref.ChannelID)
	f.Replies = append(f.Replies, sentMessage{Ref: ref, To: ref.ChannelID, Content: content})
	return reply, nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, ref messenger.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, ref)
	return nil
}

func (f *fakeMessenger) RoleMembers(_ context.Context, roleID string) ([]messenger.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.Roles[roleID]
	if !ok {
		return nil, fmt.Errorf("unknown role %s", roleID)
	}
	return members, nil
}

func (f *fakeMessenger) Member(_ context.Context, subjectID string) (*messenger.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.Members[subjectID]
	if !ok {
		return nil, fmt.Errorf("unknown member %s", subjectID)
	}
	return &member, nil
}

// repliesTo returns the reply contents posted to the passed message.
func (f *fakeMessenger) repliesTo(ref messenger.MessageRef) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.Replies {
		if r.Ref == ref {
			out = append(out, r.Content)
		}
	}
	return out
}

// privilegeChange records one ChangePrivilege call of the fake gateway.
type privilegeChange struct {
	SiteID    int64
	AccountID int64
	Action    string
}

// fakeGateway implements PrivilegeGateway in memory.
type fakeGateway struct {
	mu sync.Mutex

	Sites    []gateway.Site
	Accounts map[int64]*gateway.Account
	Changes  []privilegeChange

	// ChangeErr, when set, is returned by every ChangePrivilege call.
	ChangeErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{Accounts: make(map[int64]*gateway.Account)}
}

func (f *fakeGateway) ListSites(context.Context) ([]gateway.Site, error) {
	return f.Sites, nil
}

func (f *fakeGateway) GetUser(_ context.Context, accountID int64) (*gateway.Account, error) {
	account, ok := f.Accounts[accountID]
	if !ok {
		return nil, &gateway.APIError{Status: 404, Code: gateway.ErrCodeNotFound, Message: "no such account"}
	}
	return account, nil
}

func (f *fakeGateway) ChangePrivilege(_ context.Context, siteID, accountID int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Changes = append(f.Changes, privilegeChange{SiteID: siteID, AccountID: accountID, Action: action})
	return f.ChangeErr
}

// fakeLinker implements AccountLinker in memory.
type fakeLinker struct {
	Linked map[string][]gateway.LinkedAccount
}

func (f *fakeLinker) AccountList(_ context.Context, subjectIDs []string) (
	map[string][]gateway.LinkedAccount, error,
) {
	out := make(map[string][]gateway.LinkedAccount, len(subjectIDs))
	for _, id := range subjectIDs {
		out[id] = f.Linked[id]
	}
	return out, nil
}

// testEnv bundles a Steward wired against in-memory fakes and a throwaway
// sqlite database.
type testEnv struct {
	gw     *fakeGateway
	linker *fakeLinker
	msgr   *fakeMessenger
	backs  model.Backends
}

func newTestSteward(t *testing.T) (*Steward, *testEnv) {
	t.Helper()

	backs, err := storage.LoadStorageBackends(
		storage.Config{
			Driver:  storage.DriverSQLite,
			DataDir: t.TempDir(),
		},
	)
	require.NoError(t, err)

	env := &testEnv{
		gw:     newFakeGateway(),
		linker: &fakeLinker{Linked: make(map[string][]gateway.LinkedAccount)},
		msgr:   newFakeMessenger(),
		backs:  backs,
	}
	s, err := NewSteward(
		Config{
			Delegation: DelegationConf{GrantTTL: time.Hour, ScanInterval: time.Minute},
			Tickets:    TicketConf{RemindCadence: 48 * time.Hour, ScanInterval: time.Hour},
		},
		backs, env.gw, env.linker, env.msgr, cache.NewMemoryCache(),
	)
	require.NoError(t, err)
	return s, env
}
