package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/lang"
	"github.com/clippy-oss/homie/im-client/internal/repository"
	"github.com/clippy-oss/homie/im-client/internal/service"
)

type fixedAllocator string

func (a fixedAllocator) NewGID() string { return string(a) }

// syncBuffer lets the event goroutine and the test share one output buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newHandler(t *testing.T) *CommandHandler {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	alice := &domain.Member{ID: 1, Account: "alice", RealName: "Alice"}
	dir := service.NewMemberDirectory(repository.NewMemberRepository(db))
	require.NoError(t, dir.Put(ctx, alice))
	require.NoError(t, dir.Put(ctx, &domain.Member{ID: 2, Account: "bob", RealName: "Bob"}))

	bus := domain.NewEventBus()
	presence := service.NewPresenceTracker(bus)
	session := service.NewSession(alice, dir, lang.Default(), presence)
	svc := service.NewChatService(session,
		repository.NewChatRepository(db),
		repository.NewMessageRepository(db),
		service.NewLoopbackRemote(),
		bus,
	)
	svc.SetAllocator(fixedAllocator("g1"))
	return NewCommandHandler(svc, presence, bus, domain.DefaultOrder())
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("  /send g1 hello there ")
	require.NoError(t, err)
	assert.Equal(t, "send", cmd.Name)
	assert.Equal(t, []string{"g1", "hello", "there"}, cmd.Args)

	_, err = ParseCommand("send g1")
	assert.Error(t, err)
	_, err = ParseCommand("   ")
	assert.Error(t, err)
}

func TestParseMemberIDs(t *testing.T) {
	ids, err := parseMemberIDs([]string{"2,3", "4"})
	require.NoError(t, err)
	assert.Equal(t, []domain.MemberID{2, 3, 4}, ids)

	_, err = parseMemberIDs([]string{"bob"})
	assert.Error(t, err)
}

func TestExecuteChatCommands(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()
	exec := func(line string) (any, error) {
		cmd, err := ParseCommand(line)
		require.NoError(t, err)
		return h.Execute(ctx, cmd)
	}

	res, err := exec("/create Team 2")
	require.NoError(t, err)
	chat := res.(ChatInfo)
	assert.Equal(t, "g1", chat.GID)
	assert.Equal(t, "ok", chat.Status)

	_, err = exec("/committers g1 2")
	require.NoError(t, err)
	res, err = exec("/perms g1")
	require.NoError(t, err)
	perms := res.(PermissionsInfo)
	assert.Equal(t, "whitelist", perms.CommittersType)
	assert.True(t, perms.Readonly)

	_, err = exec("/send g1 hi")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	res, err = exec("/wl g1 add 1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"changed": true}, res)

	_, err = exec("/send g1 hi")
	require.NoError(t, err)

	res, err = exec("/chats -star name")
	require.NoError(t, err)
	assert.Equal(t, 1, res.(map[string]any)["count"])

	_, err = exec("/share g1")
	assert.Error(t, err)

	_, err = exec("/bogus")
	assert.Error(t, err)
}

func TestHeadlessSession(t *testing.T) {
	h := newHandler(t)
	input := strings.Join([]string{
		`{"id":"1","command":"create","params":{"name":"Team","members":[2]}}`,
		`{"id":"2","command":"send","params":{"gid":"g1","text":"hello"}}`,
		`{"id":"3","command":"messages","params":{"gid":"g1","limit":10}}`,
		`{"id":"4","command":"perms","params":{"gid":"g1"}}`,
		`{"id":"5","command":"rename","params":{"gid":"missing","name":"x"}}`,
		`not json`,
		`{"id":"6","command":"quit"}`,
		`{"id":"7","command":"chats"}`,
	}, "\n") + "\n"
	out := &syncBuffer{}

	err := NewHeadlessCLIWithIO(h, strings.NewReader(input), out).Run(context.Background())
	require.NoError(t, err)

	responses := map[string]map[string]any{}
	var invalid int
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		if line["type"] == "event" {
			continue
		}
		if id, ok := line["id"].(string); ok {
			responses[id] = line
		} else if e, _ := line["error"].(string); strings.Contains(e, "invalid JSON") {
			invalid++
		}
	}

	require.Contains(t, responses, "1")
	assert.Equal(t, true, responses["1"]["success"])
	assert.Equal(t, "g1", responses["1"]["data"].(map[string]any)["gid"])
	assert.Equal(t, true, responses["2"]["success"])
	assert.Equal(t, float64(1), responses["3"]["data"].(map[string]any)["count"])
	assert.Equal(t, true, responses["4"]["data"].(map[string]any)["is_owner"])
	assert.Equal(t, false, responses["5"]["success"])
	assert.Contains(t, responses["5"]["error"], "chat not found")
	assert.Equal(t, 1, invalid)
	assert.Contains(t, responses, "6")
	assert.NotContains(t, responses, "7")
}

func TestInteractiveShare(t *testing.T) {
	h := newHandler(t)
	input := "/create Team 2\n/public g1 on\n/share g1\n/quit\n"
	out := &syncBuffer{}

	err := NewInteractiveCLIWithIO(h, strings.NewReader(input), out).Run(context.Background())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Signed in as Alice (#1)")
	assert.Contains(t, text, "Join link: "+JoinLinkPrefix+"g1")
	assert.Contains(t, text, "Goodbye!")
	assert.NotContains(t, text, "Error:")
}
