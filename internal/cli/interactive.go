package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/skip2/go-qrcode"

	"github.com/clippy-oss/homie/im-client/internal/domain"
)

var errQuit = errors.New("quit")

// InteractiveCLI handles interactive command-line interface
type InteractiveCLI struct {
	handler *CommandHandler
	reader  *bufio.Reader
	writer  io.Writer
	mu      sync.Mutex
}

// NewInteractiveCLI creates a new interactive CLI
func NewInteractiveCLI(handler *CommandHandler) *InteractiveCLI {
	return NewInteractiveCLIWithIO(handler, os.Stdin, os.Stdout)
}

func NewInteractiveCLIWithIO(handler *CommandHandler, r io.Reader, w io.Writer) *InteractiveCLI {
	return &InteractiveCLI{
		handler: handler,
		reader:  bufio.NewReader(r),
		writer:  w,
	}
}

// Run starts the interactive CLI loop
func (cli *InteractiveCLI) Run(ctx context.Context) error {
	cli.printWelcome()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eventChan := cli.handler.SubscribeEvents(ctx, []domain.EventType{
		domain.EventTypeMessageReceived,
		domain.EventTypeChatStatus,
	})
	go cli.handleEvents(eventChan)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			cli.print("\n> ")
			line, err := cli.reader.ReadString('\n')
			line = strings.TrimSpace(line)
			if line != "" {
				if perr := cli.processCommand(ctx, line); perr != nil {
					if errors.Is(perr, errQuit) {
						cli.println("Goodbye!")
						return nil
					}
					cli.printf("Error: %s\n", perr)
				}
			}
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
		}
	}
}

func (cli *InteractiveCLI) printWelcome() {
	cli.println("===========================================")
	cli.println("  IM Client CLI")
	cli.println("===========================================")
	cli.println("Type /help for available commands")
	cli.println("")

	who, _ := cli.handler.cmdWhoami()
	if s, ok := who.(SessionInfo); ok {
		cli.printf("Signed in as %s (#%d), %d chat(s)\n", s.Name, s.UserID, s.Chats)
	}
}

func (cli *InteractiveCLI) processCommand(ctx context.Context, input string) error {
	cmd, err := ParseCommand(input)
	if err != nil {
		return err
	}

	result, err := cli.handler.Execute(ctx, cmd)
	if err != nil {
		return err
	}

	if m, ok := result.(map[string]bool); ok && m["quit"] {
		return errQuit
	}

	cli.displayResult(cmd.Name, result)
	return nil
}

func (cli *InteractiveCLI) displayResult(cmdName string, result any) {
	switch cmdName {
	case "help", "h":
		if m, ok := result.(map[string]string); ok {
			cli.println(m["help"])
		}

	case "whoami", "s":
		if s, ok := result.(SessionInfo); ok {
			cli.printf("User: %s (#%d)\n", s.Name, s.UserID)
			if s.ActiveChat != "" {
				cli.printf("  Active chat: %s\n", s.ActiveChat)
			}
			cli.printf("  Chats: %d\n", s.Chats)
		}

	case "chats", "ls":
		if m, ok := result.(map[string]any); ok {
			chats, _ := m["chats"].([]ChatInfo)
			cli.printf("Found %d chat(s):\n\n", len(chats))
			for i, chat := range chats {
				cli.printChat(i+1, chat)
			}
		}

	case "messages", "msg":
		if m, ok := result.(map[string]any); ok {
			messages, _ := m["messages"].([]MessageInfo)
			cli.printf("Found %d message(s):\n\n", len(messages))
			for _, msg := range messages {
				cli.printMessage(msg)
			}
		}

	case "send":
		if msg, ok := result.(MessageInfo); ok {
			cli.printf("Message sent!\n")
			if msg.ID != "" {
				cli.printf("  ID: %s\n", msg.ID)
			}
			cli.printf("  Time: %s\n", msg.Date.Format("2006-01-02 15:04:05"))
		}

	case "share":
		if info, ok := result.(ShareInfo); ok {
			cli.printf("Join link: %s\n", info.Link)
			qr, err := qrcode.New(info.Link, qrcode.Medium)
			if err != nil {
				return
			}
			cli.println(qr.ToSmallString(false))
		}

	default:
		if chat, ok := result.(ChatInfo); ok {
			cli.printChat(0, chat)
			return
		}
		if m, ok := result.(map[string]string); ok {
			if msg, exists := m["message"]; exists {
				cli.println(msg)
				return
			}
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		cli.println(string(data))
	}
}

func (cli *InteractiveCLI) printChat(n int, chat ChatInfo) {
	var flags []string
	if chat.Star {
		flags = append(flags, "*")
	}
	if chat.UnreadCount > 0 {
		flags = append(flags, fmt.Sprintf("%d unread", chat.UnreadCount))
	}
	if chat.Mute {
		flags = append(flags, "muted")
	}
	if chat.Status != domain.StatusOK.String() {
		flags = append(flags, chat.Status)
	}
	suffix := ""
	if len(flags) > 0 {
		suffix = " [" + strings.Join(flags, ", ") + "]"
	}

	if n > 0 {
		cli.printf("%d. ", n)
	}
	cli.printf("%s (%s)%s\n", chat.Name, chat.Type, suffix)
	cli.printf("   GID: %s\n", chat.GID)
	if chat.LastMessageText != "" {
		preview := []rune(chat.LastMessageText)
		if len(preview) > 50 {
			preview = append(preview[:50], []rune("...")...)
		}
		cli.printf("   Last: %s\n", string(preview))
	}
}

func (cli *InteractiveCLI) printMessage(msg MessageInfo) {
	sender := "Me"
	if !msg.IsFromMe {
		sender = fmt.Sprintf("#%d", msg.SenderID)
	}
	cli.printf("[%s] %s:\n", msg.Date.Format("2006-01-02 15:04"), sender)
	if msg.Content != "" {
		cli.printf("  %s\n", msg.Content)
	} else {
		cli.printf("  [%s]\n", msg.Type)
	}
}

func (cli *InteractiveCLI) handleEvents(eventChan <-chan Event) {
	for event := range eventChan {
		switch event.Type {
		case "message_received":
			data, _ := event.Data.(map[string]any)
			msgs, _ := data["messages"].([]MessageInfo)
			for _, msg := range msgs {
				if msg.IsFromMe {
					continue
				}
				cli.printf("\n[New Message] #%d in %s:\n", msg.SenderID, msg.ChatGID)
				cli.printf("  %s\n", msg.Content)
			}
			cli.print("> ")
		case "chat_status":
			data, _ := event.Data.(map[string]any)
			if status, _ := data["status"].(string); status == domain.StatusFail.String() {
				cli.printf("\n[Chat %v failed, /retry to submit again]\n", data["chat_gid"])
				cli.print("> ")
			}
		}
	}
}

func (cli *InteractiveCLI) print(s string) {
	cli.mu.Lock()
	defer cli.mu.Unlock()
	fmt.Fprint(cli.writer, s)
}

func (cli *InteractiveCLI) println(s string) {
	cli.print(s + "\n")
}

func (cli *InteractiveCLI) printf(format string, args ...any) {
	cli.print(fmt.Sprintf(format, args...))
}
