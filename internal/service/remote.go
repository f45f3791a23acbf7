package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

// ChatChange lists the chat attributes an update call carries. Nil fields are
// left untouched on the server.
type ChatChange struct {
	Name       *string
	Star       *bool
	Mute       *bool
	Public     *bool
	Committers *string
}

// Remote is the network side of the client. Every call is one request whose
// outcome settles the chat status.
type Remote interface {
	CreateChat(ctx context.Context, chat domain.ChatRecord) (remoteID string, err error)
	UpdateChat(ctx context.Context, remoteID string, change ChatChange) error
	InviteMembers(ctx context.Context, remoteID string, ids []domain.MemberID) error
	ExitChat(ctx context.Context, remoteID string) error
	SendMessage(ctx context.Context, remoteID string, msg domain.Message) (messageID string, err error)
}

var (
	ErrRemoteRejected = errors.New("rejected by server")
	// ErrChatBusy is returned when a chat cannot be left while one of its
	// requests is still waiting for the server.
	ErrChatBusy = errors.New("chat has pending requests")
)

// LoopbackRemote accepts every request and hands out sequential ids. It backs the
// standalone mode and tests; Reject makes the next calls fail.
type LoopbackRemote struct {
	mu     sync.Mutex
	nextID int
	reject error
	calls  []string
}

func NewLoopbackRemote() *LoopbackRemote {
	return &LoopbackRemote{}
}

// Reject makes every later call fail with err. A nil err accepts again.
func (r *LoopbackRemote) Reject(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reject = err
}

// Calls returns the names of the calls received so far.
func (r *LoopbackRemote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *LoopbackRemote) record(ctx context.Context, call string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.reject
}

func (r *LoopbackRemote) id(prefix string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return prefix + strconv.Itoa(r.nextID)
}

func (r *LoopbackRemote) CreateChat(ctx context.Context, chat domain.ChatRecord) (string, error) {
	if err := r.record(ctx, "CreateChat"); err != nil {
		return "", err
	}
	return r.id("c"), nil
}

func (r *LoopbackRemote) UpdateChat(ctx context.Context, remoteID string, change ChatChange) error {
	return r.record(ctx, "UpdateChat")
}

func (r *LoopbackRemote) InviteMembers(ctx context.Context, remoteID string, ids []domain.MemberID) error {
	return r.record(ctx, "InviteMembers")
}

func (r *LoopbackRemote) ExitChat(ctx context.Context, remoteID string) error {
	return r.record(ctx, "ExitChat")
}

func (r *LoopbackRemote) SendMessage(ctx context.Context, remoteID string, msg domain.Message) (string, error) {
	if err := r.record(ctx, "SendMessage"); err != nil {
		return "", err
	}
	return r.id("m"), nil
}
