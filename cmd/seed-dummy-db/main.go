package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/logger"
	"github.com/clippy-oss/homie/im-client/internal/repository"
)

var memberNames = []string{
	"Alice Johnson",
	"Bob Smith",
	"Charlie Brown",
	"Diana Prince",
	"Eve Wilson",
	"Frank Miller",
	"Grace Lee",
	"Henry Davis",
	"Iris Chen",
	"Jack Taylor",
	"Kate Martinez",
	"Liam O'Brien",
	"Maria Garcia",
	"Noah Anderson",
	"Olivia White",
	"王小明",
	"李华",
}

var groupNames = []string{
	"Family Group",
	"Work Team",
	"Book Club",
	"Travel Buddies",
	"读书会",
}

var sampleTexts = []string{
	"Hey! How are you doing?",
	"Just checking in 😊",
	"Can we meet tomorrow?",
	"Thanks for your help!",
	"See you later!",
	"That sounds great!",
	"Let me know when you're free",
	"Perfect! I'll be there",
	"Did you see the latest news?",
	"Have a great day!",
	"What time works for you?",
	"I'll send it over shortly",
	"Looking forward to it!",
	"Let's catch up soon",
	"Can you send me that file?",
	"See you at the meeting",
}

func main() {
	dbPath := flag.String("db", "dummy_im.db", "Database to seed")
	user := flag.Int64("user", 1, "Member id of the account owner")
	flag.Parse()

	logger.Init("warn")
	log := logger.Module("seed")

	fmt.Printf("Using database at: %s\n", *dbPath)
	db, err := repository.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	ctx := context.Background()
	if err := db.WithContext(ctx).Exec("DELETE FROM messages").Error; err != nil {
		log.Fatal().Err(err).Msg("Failed to delete messages")
	}
	fmt.Println("Deleted all messages from database")

	if err := seedDummyData(ctx, db, domain.MemberID(*user)); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed dummy data")
	}

	fmt.Println("✅ Successfully seeded members, chats and messages!")
	fmt.Printf("Database location: %s\n", *dbPath)
}

func seedDummyData(ctx context.Context, db *gorm.DB, me domain.MemberID) error {
	memberRepo := repository.NewMemberRepository(db)
	chatRepo := repository.NewChatRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	owner := &domain.Member{ID: me, Account: "me", RealName: "Me"}
	if err := memberRepo.Upsert(ctx, owner); err != nil {
		return fmt.Errorf("failed to create member %d: %w", me, err)
	}
	others := make([]domain.MemberID, 0, len(memberNames))
	for i, name := range memberNames {
		m := &domain.Member{
			ID:       me + domain.MemberID(i+1),
			Account:  strings.ToLower(strings.Fields(name)[0]),
			RealName: name,
		}
		if err := memberRepo.Upsert(ctx, m); err != nil {
			return fmt.Errorf("failed to create member %d: %w", m.ID, err)
		}
		others = append(others, m.ID)
	}

	var chats []*domain.Chat
	for _, id := range others[:7] {
		chat := domain.NewOne2OneChat(me, id)
		chat.Star = rand.Float32() < 0.3
		chat.Mute = rand.Float32() < 0.2
		chats = append(chats, chat)
	}
	for i, name := range groupNames {
		members := append([]domain.MemberID(nil), others...)
		rand.Shuffle(len(members), func(a, b int) { members[a], members[b] = members[b], members[a] })
		creator := me
		if i%2 == 1 {
			creator = members[0]
		}
		chat := domain.NewGroupChat(name, creator, append(members[:3+rand.IntN(5)], me)...)
		chat.EnsureGID(domain.UUIDAllocator{})
		chat.Public = i == 0
		chat.Mute = rand.Float32() < 0.4
		if i == 1 {
			// Only admins may post in the second group.
			chat.AddAdmin(creator)
			chat.SetCommittersValue(domain.CommittersValueAdmins)
		}
		chats = append(chats, chat)
	}
	system := domain.NewSystemChat("system", "")
	system.CreatedDate = time.Now().Add(-30 * 24 * time.Hour)
	system.SetMemberIDs(append([]domain.MemberID{me}, others...)...)
	chats = append(chats, system)

	now := time.Now()
	for _, chat := range chats {
		chat.User = me
		chat.SetRemoteID(fmt.Sprintf("r%d", rand.Uint32()))

		msgs := dummyMessages(chat, me, now)
		chat.AddMessages(msgs, me, domain.WithoutCap(), domain.KeepUnread())
		if err := msgRepo.Upsert(ctx, msgs...); err != nil {
			return fmt.Errorf("failed to create messages of %s: %w", chat.GID(), err)
		}
		chat.SetLastActiveTime(chat.LastMessage().Date)

		if err := chatRepo.Upsert(ctx, chat); err != nil {
			return fmt.Errorf("failed to save chat %s: %w", chat.GID(), err)
		}
		fmt.Printf("Created chat: %s (%s) with %d messages (unread count: %d)\n",
			chat.GID(), chat.Type(), len(msgs), chat.NoticeCount())
	}
	return nil
}

// dummyMessages generates 10-15 messages spread over the last few days. Only the
// tail of the conversation is left unread.
func dummyMessages(chat *domain.Chat, me domain.MemberID, now time.Time) []*domain.Message {
	senders := chat.MemberIDs()
	n := 10 + rand.IntN(6)
	date := now.Add(-time.Duration(1+rand.IntN(3)) * 24 * time.Hour)
	unreadFrom := n - rand.IntN(4)

	msgs := make([]*domain.Message, 0, n)
	for j := range n {
		if j > 0 {
			date = date.Add(time.Duration(10+rand.IntN(50)) * time.Minute)
			if date.After(now) {
				date = now.Add(-time.Duration(rand.IntN(30)) * time.Minute)
			}
		}
		sender := senders[rand.IntN(len(senders))]
		msg := &domain.Message{
			ID:       fmt.Sprintf("3A%016X", rand.Uint64()),
			GID:      uuid.New().String(),
			ChatGID:  chat.GID(),
			SenderID: sender,
			Type:     domain.MessageTypeText,
			Content:  sampleTexts[rand.IntN(len(sampleTexts))],
			Date:     date,
			Order:    int64(j),
			Unread:   sender != me && j >= unreadFrom,
		}
		if rand.Float32() < 0.1 {
			msg.Type = domain.MessageTypeImage
			msg.Content = "https://example.com/image.jpg"
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
