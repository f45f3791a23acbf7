package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

// Messages returns the buffered messages of a chat, oldest first, loading the
// latest stored ones on first access. limit <= 0 returns the whole buffer.
func (s *ChatService) Messages(ctx context.Context, gid string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMessages(ctx, chat); err != nil {
		return nil, err
	}

	msgs := chat.Messages()
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return copyMessages(msgs), nil
}

// ensureMessages fills an empty buffer from the store. The caller holds mu.
func (s *ChatService) ensureMessages(ctx context.Context, chat *domain.Chat) error {
	if chat.HasMessages() {
		return nil
	}
	stored, err := s.msgRepo.GetByChatGID(ctx, chat.GID(), domain.MaxMessageCount, 0)
	if err != nil {
		return fmt.Errorf("failed to load messages of %s: %w", chat.GID(), err)
	}
	chat.AddMessages(stored, s.session.UserID(), domain.KeepUnread())
	return nil
}

// Receive delivers messages from the server. Messages of unknown chats are
// skipped. It returns how many messages were accepted.
func (s *ChatService) Receive(ctx context.Context, msgs []*domain.Message) (int, error) {
	byChat := make(map[string][]*domain.Message)
	var order []string
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if _, ok := byChat[msg.ChatGID]; !ok {
			order = append(order, msg.ChatGID)
		}
		byChat[msg.ChatGID] = append(byChat[msg.ChatGID], msg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := 0
	for _, gid := range order {
		chat, ok := s.chats[gid]
		if !ok {
			s.log.Warn().Str("gid", gid).Int("messages", len(byChat[gid])).Msg("Dropping messages of unknown chat")
			continue
		}
		n, err := s.receive(ctx, chat, byChat[gid])
		accepted += n
		if err != nil {
			return accepted, err
		}
	}
	return accepted, nil
}

func (s *ChatService) receive(ctx context.Context, chat *domain.Chat, batch []*domain.Message) (int, error) {
	if err := s.ensureMessages(ctx, chat); err != nil {
		return 0, err
	}
	for _, msg := range batch {
		if msg.GID == "" {
			msg.GID = uuid.New().String()
		}
	}
	chat.AddMessages(batch, s.session.UserID())

	// Merged messages live in the buffer, so store the buffered copy when there
	// is one. Messages already pushed out by the cap are stored as received.
	buffered := make(map[string]*domain.Message, len(chat.Messages()))
	for _, msg := range chat.Messages() {
		buffered[msg.GID] = msg
	}
	var stored []*domain.Message
	seen := make(map[string]bool, len(batch))
	for _, msg := range batch {
		if msg.Date.IsZero() || seen[msg.GID] {
			continue
		}
		seen[msg.GID] = true
		if b, ok := buffered[msg.GID]; ok {
			msg = b
		}
		stored = append(stored, msg)
	}
	if len(stored) == 0 {
		return 0, nil
	}

	if err := s.msgRepo.Upsert(ctx, stored...); err != nil {
		return 0, fmt.Errorf("failed to save messages of %s: %w", chat.GID(), err)
	}
	if last := chat.LastMessage(); last != nil && last.Date.After(chat.LastActiveTime()) {
		chat.SetLastActiveTime(last.Date)
	}
	if err := s.save(ctx, chat); err != nil {
		return len(stored), err
	}

	s.eventBus.Publish(domain.MessageReceivedEvent{
		ChatGID:   chat.GID(),
		Messages:  copyMessages(stored),
		EventTime: time.Now(),
	})
	return len(stored), nil
}

// Send composes a text message from the current user. It is stored right away;
// the server id is filled in once the server accepted it.
func (s *ChatService) Send(ctx context.Context, gid, content string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return domain.Message{}, err
	}
	user := s.session.CurrentUser()
	if chat.IsReadonly(user) {
		return domain.Message{}, fmt.Errorf("send to %s: %w", gid, domain.ErrPermissionDenied)
	}
	if err := s.ensureMessages(ctx, chat); err != nil {
		return domain.Message{}, err
	}

	msg := &domain.Message{
		GID:      uuid.New().String(),
		ChatGID:  gid,
		SenderID: user.ID,
		Type:     domain.MessageTypeText,
		Content:  content,
		Date:     time.Now(),
		Order:    chat.NewMsgOrder(),
	}
	chat.AddMessage(msg, user.ID, domain.LocalOrigin())
	chat.MakeActive()
	if err := s.msgRepo.Upsert(ctx, msg); err != nil {
		return domain.Message{}, fmt.Errorf("failed to save message: %w", err)
	}
	if err := s.save(ctx, chat); err != nil {
		return *msg, err
	}

	remoteID := chat.ID()
	if remoteID == "" {
		return *msg, nil
	}
	pending := *msg
	p := s.begin(gid)
	s.mu.Unlock()
	id, err := s.remote.SendMessage(ctx, remoteID, pending)
	s.mu.Lock()
	s.end(gid, p)
	if !s.tracked(chat) {
		return *msg, fmt.Errorf("failed to send message: %w: %s", domain.ErrChatNotFound, gid)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("gid", gid).Str("message", msg.GID).Msg("Failed to send message")
		return *msg, fmt.Errorf("failed to send message: %w", err)
	}
	msg.ID = id
	if err := s.msgRepo.Upsert(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("message", msg.GID).Msg("Failed to persist sent message")
	}
	return *msg, nil
}

// MarkRead clears the unread state of a chat and returns how many messages
// changed. Only those are written back.
func (s *ChatService) MarkRead(ctx context.Context, gid string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return 0, err
	}
	return s.markRead(ctx, chat)
}

func (s *ChatService) markRead(ctx context.Context, chat *domain.Chat) (int, error) {
	if err := s.ensureMessages(ctx, chat); err != nil {
		return 0, err
	}
	muted := chat.MuteNotice()
	if len(muted) == 0 {
		return 0, nil
	}

	gids := make([]string, len(muted))
	for i, m := range muted {
		gids[i] = m.GID
	}
	if err := s.msgRepo.UpdateUnread(ctx, gids, false); err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	s.eventBus.Publish(domain.MessageReadEvent{
		ChatGID:     chat.GID(),
		MessageGIDs: gids,
		EventTime:   time.Now(),
	})
	return len(muted), nil
}

// RemoveMessage deletes a message by id or gid from the buffer and the store.
func (s *ChatService) RemoveMessage(ctx context.Context, gid, idOrGID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, err := s.chat(gid)
	if err != nil {
		return err
	}
	if err := s.ensureMessages(ctx, chat); err != nil {
		return err
	}
	chat.RemoveMessage(idOrGID)
	if err := s.msgRepo.Delete(ctx, idOrGID); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", idOrGID, err)
	}
	return nil
}
