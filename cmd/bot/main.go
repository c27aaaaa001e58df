// Command bot runs the STK Supply community bot: the ticket lifecycle over
// the Discord gateway plus a small keep-alive HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/stksupply/ticket-bot/internal/api/http"
	"github.com/stksupply/ticket-bot/internal/api/http/handlers"
	"github.com/stksupply/ticket-bot/internal/auth"
	"github.com/stksupply/ticket-bot/internal/bot"
	"github.com/stksupply/ticket-bot/internal/config"
	"github.com/stksupply/ticket-bot/internal/events"
	"github.com/stksupply/ticket-bot/internal/menu"
	"github.com/stksupply/ticket-bot/internal/observability"
	"github.com/stksupply/ticket-bot/internal/persistence"
	"github.com/stksupply/ticket-bot/internal/platform"
	"github.com/stksupply/ticket-bot/internal/service"
	"github.com/stksupply/ticket-bot/internal/worker"
)

const requestTimeout = 10 * time.Second

type options struct {
	envFile    string
	storePath  string
	issueToken string
	tokenRole  string
}

func main() {
	var opts options
	flagSet := pflag.NewFlagSet("bot", pflag.ContinueOnError)
	flagSet.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flagSet.StringVar(&opts.storePath, "store-path", "", "override STORE_PATH for the file backend")
	flagSet.StringVar(&opts.issueToken, "issue-admin-token", "", "print an admin API token for this subject and exit")
	flagSet.StringVar(&opts.tokenRole, "role", auth.RoleAdmin, "role of the issued token (admin or viewer)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if opts.issueToken != "" {
		if err := issueToken(opts); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(opts.envFile)
	if errors.Is(err, config.ErrMissingToken) {
		fmt.Fprintln(os.Stderr, "DISCORD_BOT_TOKEN is not set. Add it to the environment or to .env and start the bot again.")
		return
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bot stopped", zap.Error(err))
	}
}

func issueToken(opts options) error {
	cfg, err := config.Read(opts.envFile)
	if err != nil {
		return err
	}
	switch opts.tokenRole {
	case auth.RoleAdmin, auth.RoleViewer:
	default:
		return fmt.Errorf("unknown role %q", opts.tokenRole)
	}
	tokens := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(opts.issueToken, opts.tokenRole)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := persistence.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()
	store := persistence.NewSoftStore(backend.Store, logger)

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = bot.Intents
	chat := platform.NewDiscord(dg)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(func(event events.Event, err error) {
		logger.Warn("event handler failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	})
	directory := service.NewChannelDirectory()

	tickets := service.NewTicketService(ctx, service.TicketDependencies{
		Store:      store,
		Platform:   chat,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Discord:    cfg.Discord,
		Tickets:    cfg.Tickets,
	})
	defer tickets.Shutdown()

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, chat, directory, logger, cfg.Notification))
	reports := service.NewReportService(chat, directory, logger, nil)
	stopReports, err := worker.StartReportWorker(reports, cfg.Report, logger)
	if err != nil {
		return err
	}
	defer stopReports()

	graph, err := menu.Default()
	if err != nil {
		return fmt.Errorf("load menu catalog: %w", err)
	}
	embeds := service.NewEmbedService(tickets, chat, logger, cfg.Tickets.EmbedDraftTTL())
	router := bot.NewRouter(tickets, reports, embeds, graph, cfg.Discord.StaffRoles(), logger)
	session := bot.NewSession(dg, router, chat, directory, graph, cfg.Discord.AutoPostPanels, logger)
	session.Register()

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer dg.Close() //nolint:errcheck

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, requestTimeout)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, session.Connected),
		Admin:          handlers.NewAdminHandler(tickets, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTLMinutes)),
		WebRoot:        cfg.App.WebRoot,
		Hidden:         []string{cfg.Store.Path},
	})

	ln, err := httptransport.Listen(cfg.App)
	if err != nil {
		return err
	}
	logger.Info("keep-alive server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := app.Listener(ln); err != nil {
			logger.Error("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
