package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/logger"
	"github.com/clippy-oss/homie/im-client/internal/repository"
)

// ChatService owns the chats of a session. Every chat is touched only while mu
// is held, which makes the service the single event loop the entities assume.
// Remote calls run with mu released and settle the chat status when they return.
type ChatService struct {
	session  *Session
	chatRepo repository.ChatRepository
	msgRepo  repository.MessageRepository
	remote   Remote
	eventBus domain.EventBus
	alloc    domain.IDAllocator
	log      zerolog.Logger

	mu    sync.Mutex
	chats map[string]*domain.Chat
	// inflight counts the remote calls of a chat that have not returned yet.
	inflight map[string]*inflight
}

type inflight struct {
	calls  int
	failed bool
}

func NewChatService(
	session *Session,
	chatRepo repository.ChatRepository,
	msgRepo repository.MessageRepository,
	remote Remote,
	eventBus domain.EventBus,
) *ChatService {
	return &ChatService{
		session:  session,
		chatRepo: chatRepo,
		msgRepo:  msgRepo,
		remote:   remote,
		eventBus: eventBus,
		alloc:    domain.UUIDAllocator{},
		log:      logger.Module("chat"),
		chats:    make(map[string]*domain.Chat),
		inflight: make(map[string]*inflight),
	}
}

// SetAllocator replaces the gid allocator used for new group chats.
func (s *ChatService) SetAllocator(alloc domain.IDAllocator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alloc = alloc
}

func (s *ChatService) Session() *Session {
	return s.session
}

// Load reads the chats of the current user from the store. Notice counts start
// from the stored unread messages.
func (s *ChatService) Load(ctx context.Context) error {
	chats, err := s.chatRepo.GetAll(ctx, s.session.UserID())
	if err != nil {
		return fmt.Errorf("failed to load chats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chat := range chats {
		unread, err := s.msgRepo.CountUnread(ctx, chat.GID())
		if err != nil {
			return fmt.Errorf("failed to count unread messages of %s: %w", chat.GID(), err)
		}
		chat.SetNoticeCount(unread)
		s.track(chat)
	}
	s.log.Info().Int("chats", len(chats)).Msg("Loaded chats")
	return nil
}

// track registers chat with the service and mirrors its status changes into the
// store and onto the event bus.
func (s *ChatService) track(chat *domain.Chat) {
	if old, ok := s.chats[chat.GID()]; ok && old == chat {
		return
	}
	s.chats[chat.GID()] = chat
	chat.OnStatusChange(s.onStatusChange)
}

func (s *ChatService) onStatusChange(status domain.ChatStatus, chat *domain.Chat) {
	if err := s.chatRepo.UpdateStatus(context.Background(), chat.GID(), status); err != nil {
		s.log.Warn().Err(err).Str("gid", chat.GID()).Msg("Failed to persist chat status")
	}
	s.eventBus.Publish(domain.ChatStatusEvent{
		ChatGID:   chat.GID(),
		Status:    status,
		EventTime: time.Now(),
	})
}

// chat looks up gid. The caller holds mu.
func (s *ChatService) chat(gid string) (*domain.Chat, error) {
	chat, ok := s.chats[gid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrChatNotFound, gid)
	}
	return chat, nil
}

// save persists chat and announces the new state. The caller holds mu.
func (s *ChatService) save(ctx context.Context, chat *domain.Chat) error {
	if !s.tracked(chat) {
		return nil
	}
	if err := s.chatRepo.Upsert(ctx, chat); err != nil {
		return fmt.Errorf("failed to save chat %s: %w", chat.GID(), err)
	}
	s.eventBus.Publish(domain.ChatUpdatedEvent{
		Chat:      chat.Record(),
		EventTime: time.Now(),
	})
	return nil
}

// tracked reports whether chat is still the live entity for its gid. A chat
// removed by Exit while a remote call was pending is not. The caller holds mu.
func (s *ChatService) tracked(chat *domain.Chat) bool {
	return s.chats[chat.GID()] == chat
}

// begin registers a remote call of gid. The caller holds mu.
func (s *ChatService) begin(gid string) *inflight {
	p := s.inflight[gid]
	if p == nil {
		p = &inflight{}
		s.inflight[gid] = p
	}
	p.calls++
	return p
}

// end unregisters a remote call started by begin. The caller holds mu.
func (s *ChatService) end(gid string, p *inflight) {
	p.calls--
	if p.calls == 0 && s.inflight[gid] == p {
		delete(s.inflight, gid)
	}
}

// dispatch puts chat into the sending state and runs call with mu released.
// The chat settles once its last pending call returns: failed if any of them
// failed, ok otherwise. A returned remote id is recorded right away. If the
// chat was removed meanwhile nothing is applied. The caller holds mu.
func (s *ChatService) dispatch(ctx context.Context, chat *domain.Chat, op string, call func(ctx context.Context) (string, error)) error {
	gid := chat.GID()
	p := s.begin(gid)
	chat.ChangeStatus(domain.StatusSending)

	s.mu.Unlock()
	remoteID, err := call(ctx)
	s.mu.Lock()
	s.end(gid, p)

	if !s.tracked(chat) {
		s.log.Info().Str("gid", gid).Str("op", op).Msg("Chat removed during remote call")
		return fmt.Errorf("failed to %s: %w: %s", op, domain.ErrChatNotFound, gid)
	}
	if err != nil {
		p.failed = true
		chat.ChangeStatus(domain.StatusFail)
		s.log.Warn().Err(err).Str("gid", gid).Str("op", op).Msg("Remote call failed")
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if remoteID != "" {
		chat.SetRemoteID(remoteID)
	}
	switch {
	case p.calls > 0:
		chat.ChangeStatus(domain.StatusSending)
	case p.failed:
		chat.ChangeStatus(domain.StatusFail)
	default:
		chat.ChangeStatus(domain.StatusOK)
	}
	return nil
}

// update applies a change that the server has to accept. Chats the server has
// not confirmed yet only change locally; Submit carries the change along.
func (s *ChatService) update(ctx context.Context, chat *domain.Chat, op string, change ChatChange) error {
	chat.EditedDate = time.Now()
	if err := s.save(ctx, chat); err != nil {
		return err
	}
	remoteID := chat.ID()
	if remoteID == "" {
		return nil
	}
	err := s.dispatch(ctx, chat, op, func(ctx context.Context) (string, error) {
		return "", s.remote.UpdateChat(ctx, remoteID, change)
	})
	if saveErr := s.save(ctx, chat); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

func (s *ChatService) List(order domain.Order) []ChatView {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := make([]*domain.Chat, 0, len(s.chats))
	for _, chat := range s.chats {
		chats = append(chats, chat)
	}
	domain.SortChats(chats, order, s.session)

	views := make([]ChatView, len(chats))
	for i, chat := range chats {
		views[i] = newChatView(chat, s.session)
	}
	return views
}

func (s *ChatService) Get(gid string) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	return newChatView(chat, s.session), nil
}

func (s *ChatService) Permissions(gid string) (Permissions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return Permissions{}, err
	}
	return newPermissions(chat, s.session.CurrentUser()), nil
}

type CreateChatRequest struct {
	Type    domain.ChatType
	Name    string
	Members []domain.MemberID
}

// Create stores a new chat and submits it to the server. A one-to-one chat
// with the same member already known is returned as is.
func (s *ChatService) Create(ctx context.Context, req CreateChatRequest) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.session.UserID()
	var chat *domain.Chat
	switch req.Type {
	case domain.ChatTypeOne2One:
		if len(req.Members) != 1 || req.Members[0] == user {
			return ChatView{}, fmt.Errorf("one-to-one chat needs exactly one other member")
		}
		chat = domain.NewOne2OneChat(user, req.Members[0])
		if existing, ok := s.chats[chat.GID()]; ok {
			return newChatView(existing, s.session), nil
		}
	case domain.ChatTypeGroup, "":
		chat = domain.NewGroupChat(req.Name, user, req.Members...)
		chat.EnsureGID(s.alloc)
	default:
		return ChatView{}, fmt.Errorf("cannot create chat of type %q", req.Type)
	}
	chat.User = user

	s.track(chat)
	if err := s.save(ctx, chat); err != nil {
		delete(s.chats, chat.GID())
		return ChatView{}, err
	}
	s.log.Info().Str("gid", chat.GID()).Str("type", string(chat.Type())).Msg("Created chat")

	err := s.submit(ctx, chat)
	return newChatView(chat, s.session), err
}

// Submit sends a chat the server has not confirmed yet, typically one that
// failed before. Confirmed chats are returned unchanged.
func (s *ChatService) Submit(ctx context.Context, gid string) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	if chat.ID() != "" {
		return newChatView(chat, s.session), nil
	}
	err = s.submit(ctx, chat)
	return newChatView(chat, s.session), err
}

func (s *ChatService) submit(ctx context.Context, chat *domain.Chat) error {
	record := chat.Record()
	err := s.dispatch(ctx, chat, "create chat", func(ctx context.Context) (string, error) {
		id, err := s.remote.CreateChat(ctx, record)
		if err == nil && id == "" {
			err = fmt.Errorf("server returned no chat id")
		}
		return id, err
	})
	if saveErr := s.save(ctx, chat); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

func (s *ChatService) Rename(ctx context.Context, gid, name string) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	if !chat.CanRename(s.session.CurrentUser()) {
		return ChatView{}, fmt.Errorf("rename %s: %w", gid, domain.ErrPermissionDenied)
	}
	chat.SetName(name)
	err = s.update(ctx, chat, "rename chat", ChatChange{Name: &name})
	return newChatView(chat, s.session), err
}

// ToggleStar flips the starred flag. Starring is personal, so any member may.
func (s *ChatService) ToggleStar(ctx context.Context, gid string) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	chat.Star = !chat.Star
	star := chat.Star
	err = s.update(ctx, chat, "star chat", ChatChange{Star: &star})
	return newChatView(chat, s.session), err
}

func (s *ChatService) SetMute(ctx context.Context, gid string, mute bool) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	if chat.Mute == mute {
		return newChatView(chat, s.session), nil
	}
	chat.Mute = mute
	err = s.update(ctx, chat, "mute chat", ChatChange{Mute: &mute})
	return newChatView(chat, s.session), err
}

func (s *ChatService) SetPublic(ctx context.Context, gid string, public bool) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	if !chat.CanMakePublic(s.session.CurrentUser()) {
		return ChatView{}, fmt.Errorf("make %s public: %w", gid, domain.ErrPermissionDenied)
	}
	if chat.Public == public {
		return newChatView(chat, s.session), nil
	}
	chat.Public = public
	err = s.update(ctx, chat, "publish chat", ChatChange{Public: &public})
	return newChatView(chat, s.session), err
}

// SetCommitters replaces the committers policy. value is "$ADMINS", "$ALL" or a
// comma separated list of member ids; invalid ids are dropped.
func (s *ChatService) SetCommitters(ctx context.Context, gid, value string) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	if !chat.CanSetCommitters(s.session.CurrentUser()) {
		return ChatView{}, fmt.Errorf("set committers of %s: %w", gid, domain.ErrPermissionDenied)
	}
	chat.SetCommittersValue(value)
	if chat.HasWhitelist() {
		chat.SetWhitelist(chat.Whitelist())
	}
	committers := chat.CommittersValue()
	err = s.update(ctx, chat, "set committers", ChatChange{Committers: &committers})
	return newChatView(chat, s.session), err
}

// AddToWhitelist adds id to the whitelist of a chat using that policy. It
// reports whether the whitelist changed.
func (s *ChatService) AddToWhitelist(ctx context.Context, gid string, id domain.MemberID) (bool, error) {
	return s.editWhitelist(ctx, gid, func(chat *domain.Chat) bool {
		return chat.AddToWhitelist(id)
	})
}

func (s *ChatService) RemoveFromWhitelist(ctx context.Context, gid string, id domain.MemberID) (bool, error) {
	return s.editWhitelist(ctx, gid, func(chat *domain.Chat) bool {
		return chat.RemoveFromWhitelist(id)
	})
}

func (s *ChatService) editWhitelist(ctx context.Context, gid string, edit func(*domain.Chat) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return false, err
	}
	if !chat.CanSetCommitters(s.session.CurrentUser()) {
		return false, fmt.Errorf("edit whitelist of %s: %w", gid, domain.ErrPermissionDenied)
	}
	if !edit(chat) {
		return false, nil
	}
	committers := chat.CommittersValue()
	return true, s.update(ctx, chat, "set committers", ChatChange{Committers: &committers})
}

// Invite adds members to a chat. Ids unknown to the directory join as bare
// members and resolve once the directory learns them.
func (s *ChatService) Invite(ctx context.Context, gid string, ids ...domain.MemberID) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	if !chat.CanInvite(s.session.CurrentUser()) {
		return ChatView{}, fmt.Errorf("invite to %s: %w", gid, domain.ErrPermissionDenied)
	}

	var added []domain.MemberID
	for _, id := range ids {
		if chat.IsMember(id) {
			continue
		}
		chat.AddMembers(s.session.directory.Resolve(id))
		added = append(added, id)
	}
	if len(added) == 0 {
		return newChatView(chat, s.session), nil
	}

	chat.EditedDate = time.Now()
	if err := s.save(ctx, chat); err != nil {
		return ChatView{}, err
	}
	if remoteID := chat.ID(); remoteID != "" {
		err = s.dispatch(ctx, chat, "invite members", func(ctx context.Context) (string, error) {
			return "", s.remote.InviteMembers(ctx, remoteID, added)
		})
		if saveErr := s.save(ctx, chat); saveErr != nil && err == nil {
			err = saveErr
		}
	}
	return newChatView(chat, s.session), err
}

// Exit leaves a group chat and forgets it locally together with its messages.
func (s *ChatService) Exit(ctx context.Context, gid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return err
	}
	if !chat.CanExit() {
		return fmt.Errorf("exit %s: %w", gid, domain.ErrPermissionDenied)
	}
	if _, busy := s.inflight[gid]; busy {
		return fmt.Errorf("exit %s: %w", gid, ErrChatBusy)
	}
	if remoteID := chat.ID(); remoteID != "" {
		err := s.dispatch(ctx, chat, "exit chat", func(ctx context.Context) (string, error) {
			return "", s.remote.ExitChat(ctx, remoteID)
		})
		if err != nil {
			return err
		}
	}

	if err := s.msgRepo.DeleteByChatGID(ctx, gid); err != nil {
		return fmt.Errorf("failed to delete messages of %s: %w", gid, err)
	}
	if err := s.chatRepo.Delete(ctx, gid); err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", gid, err)
	}
	delete(s.chats, gid)
	if s.session.ActiveChat() == gid {
		s.session.setActive("")
	}

	s.eventBus.Publish(domain.ChatRemovedEvent{ChatGID: gid, EventTime: time.Now()})
	s.log.Info().Str("gid", gid).Msg("Left chat")
	return nil
}

// Adopt registers a chat that arrived from the server, such as the system chat
// or a group the user was invited to. A chat already known keeps its messages
// and takes over the incoming attributes.
func (s *ChatService) Adopt(ctx context.Context, record domain.ChatRecord) (ChatView, error) {
	if record.GID == "" {
		return ChatView{}, fmt.Errorf("chat has no gid")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	incoming := domain.ChatFromRecord(record)
	incoming.User = s.session.UserID()
	if existing, ok := s.chats[record.GID]; ok {
		if record.Type != "" {
			existing.SetType(record.Type)
		}
		existing.SetName(incoming.RawName())
		existing.SetMemberIDs(incoming.MemberIDs()...)
		existing.SetCommittersValue(incoming.CommittersValue())
		existing.Public = incoming.Public
		existing.EditedDate = incoming.EditedDate
		for _, admin := range record.Admins {
			if id, err := domain.ParseMemberID(admin); err == nil {
				existing.AddAdmin(id)
			}
		}
		if record.ID != "" {
			existing.SetRemoteID(record.ID)
		}
		if err := s.save(ctx, existing); err != nil {
			return ChatView{}, err
		}
		return newChatView(existing, s.session), nil
	}

	s.track(incoming)
	if record.ID != "" {
		incoming.SetRemoteID(record.ID)
	}
	if err := s.save(ctx, incoming); err != nil {
		delete(s.chats, incoming.GID())
		return ChatView{}, err
	}
	return newChatView(incoming, s.session), nil
}

// Activate makes gid the chat on screen, bumps its recency and reads it.
func (s *ChatService) Activate(ctx context.Context, gid string) (ChatView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return ChatView{}, err
	}
	s.session.setActive(gid)
	chat.MakeActive()
	if _, err := s.markRead(ctx, chat); err != nil {
		return ChatView{}, err
	}
	if err := s.save(ctx, chat); err != nil {
		return ChatView{}, err
	}
	return newChatView(chat, s.session), nil
}
