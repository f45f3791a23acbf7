package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/clippy-oss/homie/im-client/internal/config"
	"github.com/clippy-oss/homie/im-client/internal/domain"
)

// HeadlessCLI handles JSON-based headless operation
type HeadlessCLI struct {
	handler *CommandHandler
	reader  *bufio.Reader
	writer  io.Writer
	mu      sync.Mutex
}

// NewHeadlessCLI creates a headless CLI on stdin and stdout
func NewHeadlessCLI(handler *CommandHandler) *HeadlessCLI {
	return NewHeadlessCLIWithIO(handler, os.Stdin, os.Stdout)
}

func NewHeadlessCLIWithIO(handler *CommandHandler, r io.Reader, w io.Writer) *HeadlessCLI {
	return &HeadlessCLI{
		handler: handler,
		reader:  bufio.NewReader(r),
		writer:  w,
	}
}

// Run processes one JSON request per line until EOF, a quit command, or ctx ends.
func (cli *HeadlessCLI) Run(ctx context.Context) error {
	cli.sendResponse(Response{
		Success: true,
		Data:    map[string]string{"status": "ready", "mode": string(config.ModeHeadless)},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eventChan := cli.handler.SubscribeEvents(ctx, []domain.EventType{
		domain.EventTypeMessageReceived,
		domain.EventTypeMessageRead,
		domain.EventTypeChatStatus,
		domain.EventTypeChatRemoved,
	})
	go cli.streamEvents(eventChan)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			line, err := cli.reader.ReadString('\n')
			if strings.TrimSpace(line) != "" {
				if quit := cli.processRequest(ctx, line); quit {
					return nil
				}
			}
			if err != nil {
				if err == io.EOF {
					return nil
				}
				cli.sendError("", fmt.Sprintf("read error: %v", err))
				return err
			}
		}
	}
}

func (cli *HeadlessCLI) processRequest(ctx context.Context, line string) (quit bool) {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		cli.sendError("", fmt.Sprintf("invalid JSON: %v", err))
		return false
	}

	if req.Command == "" {
		cli.sendError(req.ID, "missing command field")
		return false
	}

	switch req.Command {
	case "subscribe":
		cli.sendResponse(Response{
			ID:      req.ID,
			Success: true,
			Data:    map[string]string{"message": "subscribed to events"},
		})
		return false
	case "quit", "exit":
		cli.sendResponse(Response{
			ID:      req.ID,
			Success: true,
			Data:    map[string]string{"message": "goodbye"},
		})
		return true
	}

	cmd := &Command{
		Name: req.Command,
		Args: cli.paramsToArgs(req.Command, req.Params),
	}
	result, err := cli.handler.Execute(ctx, cmd)
	if err != nil {
		cli.sendError(req.ID, err.Error())
		return false
	}

	cli.sendResponse(Response{
		ID:      req.ID,
		Success: true,
		Data:    result,
	})
	return false
}

func stringParam(params map[string]any, key string) (string, bool) {
	switch v := params[key].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	case bool:
		if v {
			return "on", true
		}
		return "off", true
	}
	return "", false
}

func listParam(params map[string]any, key string) []string {
	var out []string
	switch v := params[key].(type) {
	case []any:
		for _, item := range v {
			switch x := item.(type) {
			case string:
				out = append(out, x)
			case float64:
				out = append(out, strconv.FormatInt(int64(x), 10))
			}
		}
	case string:
		out = strings.Fields(v)
	case float64:
		out = append(out, strconv.FormatInt(int64(v), 10))
	}
	return out
}

// paramsToArgs orders the named request params the way the matching slash
// command expects its arguments.
func (cli *HeadlessCLI) paramsToArgs(command string, params map[string]any) []string {
	if params == nil {
		return nil
	}

	var args []string
	add := func(keys ...string) {
		for _, key := range keys {
			if v, ok := stringParam(params, key); ok {
				args = append(args, v)
			}
		}
	}

	switch command {
	case "chats", "ls":
		args = append(args, listParam(params, "order")...)
	case "show", "open", "read", "retry", "star", "perms", "leave", "share":
		add("gid")
	case "messages", "msg":
		add("gid", "limit")
	case "send":
		add("gid", "text")
	case "create":
		add("name")
		args = append(args, listParam(params, "members")...)
	case "direct", "dm":
		add("member")
	case "rename":
		add("gid", "name")
	case "mute":
		add("gid", "mute")
	case "public":
		add("gid", "public")
	case "invite":
		add("gid")
		args = append(args, listParam(params, "members")...)
	case "committers":
		add("gid", "value")
	case "whitelist", "wl":
		add("gid", "action", "member")
	case "members":
		add("query")
	case "presence":
		add("member", "online")
	}

	return args
}

func (cli *HeadlessCLI) streamEvents(eventChan <-chan Event) {
	for event := range eventChan {
		cli.sendEvent(event)
	}
}

func (cli *HeadlessCLI) sendResponse(resp Response) {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{ID: resp.ID, Error: err.Error()})
	}
	fmt.Fprintln(cli.writer, string(data))
}

func (cli *HeadlessCLI) sendError(id, message string) {
	cli.sendResponse(Response{
		ID:      id,
		Success: false,
		Error:   message,
	})
}

func (cli *HeadlessCLI) sendEvent(event Event) {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	data, _ := json.Marshal(map[string]any{
		"type":      "event",
		"event":     event.Type,
		"timestamp": event.Timestamp,
		"data":      event.Data,
	})
	fmt.Fprintln(cli.writer, string(data))
}
