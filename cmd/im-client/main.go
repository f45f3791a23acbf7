package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clippy-oss/homie/im-client/internal/cli"
	"github.com/clippy-oss/homie/im-client/internal/config"
	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/lang"
	"github.com/clippy-oss/homie/im-client/internal/logger"
	"github.com/clippy-oss/homie/im-client/internal/repository"
	"github.com/clippy-oss/homie/im-client/internal/service"
	grpcTransport "github.com/clippy-oss/homie/im-client/internal/transport/grpc"
	mcpTransport "github.com/clippy-oss/homie/im-client/internal/transport/mcp"
)

type app struct {
	cfg      *config.Config
	chatSvc  *service.ChatService
	presence *service.PresenceTracker
	eventBus domain.EventBus
	order    domain.Order
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// The CLI modes share the terminal with the user, keep them quiet.
	level := cfg.LogLevel
	if cfg.Mode != config.ModeServer && level == "info" {
		level = "error"
	}
	logger.Init(level)
	log := logger.Module("main")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}

	switch cfg.Mode {
	case config.ModeInteractive:
		err = cli.NewInteractiveCLI(a.handler()).Run(ctx)
	case config.ModeHeadless:
		err = cli.NewHeadlessCLI(a.handler()).Run(ctx)
	default:
		err = a.serve(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Exited with error")
		os.Exit(1)
	}
}

func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	directory := service.NewMemberDirectory(repository.NewMemberRepository(db))
	if err := directory.Load(ctx); err != nil {
		return nil, err
	}
	user := directory.Resolve(domain.MemberID(cfg.UserID))

	eventBus := domain.NewEventBus()
	presence := service.NewPresenceTracker(eventBus)
	go presence.Run(ctx)

	session := service.NewSession(user, directory, lang.New(cfg.Locale), presence)
	chatSvc := service.NewChatService(
		session,
		repository.NewChatRepository(db),
		repository.NewMessageRepository(db),
		service.NewLoopbackRemote(),
		eventBus,
	)
	if err := chatSvc.Load(ctx); err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		chatSvc:  chatSvc,
		presence: presence,
		eventBus: eventBus,
		order:    domain.ParseOrder(cfg.ChatOrder),
	}, nil
}

func (a *app) handler() *cli.CommandHandler {
	return cli.NewCommandHandler(a.chatSvc, a.presence, a.eventBus, a.order)
}

func (a *app) serve(ctx context.Context) error {
	log := logger.Module("main")
	log.Info().
		Str("database", a.cfg.DatabasePath).
		Str("grpc", a.cfg.GRPCAddress).
		Str("mcp", a.cfg.MCPAddress).
		Int64("user", a.cfg.UserID).
		Msg("IM client starting")

	grpcServer := grpcTransport.NewServer(
		grpcTransport.NewHandler(a.chatSvc, a.presence, a.eventBus, a.order),
		grpcTransport.ServerConfig{Address: a.cfg.GRPCAddress},
	)
	mcpServer := mcpTransport.NewServer(a.chatSvc, a.order, mcpTransport.ServerConfig{Address: a.cfg.MCPAddress})

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("address", a.cfg.GRPCAddress).Msg("Starting gRPC server")
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		log.Info().Str("address", a.cfg.MCPAddress).Msg("Starting MCP SSE server")
		if err := mcpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	// Print ready message for subprocess coordination
	fmt.Println("ready")

	var serveErr error
	select {
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("Server error")
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Stop()
	if err := mcpServer.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("MCP server stop error")
	}
	log.Info().Msg("Shutdown complete")
	return serveErr
}
