package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/quill/internal/blogservice"
	"github.com/sushihentaime/quill/internal/common"
	"github.com/sushihentaime/quill/internal/mailservice"
	"github.com/sushihentaime/quill/internal/render"
	"github.com/sushihentaime/quill/internal/userservice"
)

type application struct {
	config      *Config
	logger      *slog.Logger
	userService *userservice.UserService
	blogService *blogservice.BlogService
	mailService *mailservice.MailService
	broker      common.MessageProducer
	renderer    render.Renderer
	limiter     *ipLimiter
}

func main() {
	configPath := flag.String("config", ".env", "path to the .env file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dsn := common.DSN(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name)
	db, err := common.NewDB(dsn, cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns, cfg.DB.MaxIdleTime)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	m, err := common.Migrate(cfg.MigrationsPath, dsn)
	if err != nil {
		logger.Error("failed to migrate the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	m.Close()

	broker, err := common.NewMessageBroker(common.BrokerURI(cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port))
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.SetupBlogExchange(broker)
	if err != nil {
		logger.Error("failed to setup the blog exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	renderer, err := render.NewHTML()
	if err != nil {
		logger.Error("failed to parse templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var sessions userservice.SessionStore
	switch cfg.Session.Store {
	case "memory":
		sessions = userservice.NewMemorySessionStore(cfg.Session.TTL)
	default:
		store := userservice.NewPostgresSessionStore(db, cfg.Session.TTL)
		go sweepSessions(store, logger)
		sessions = store
	}

	cache := common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL)

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(db, sessions, broker, logger),
		blogService: blogservice.NewBlogService(db, cache),
		mailService: mailservice.NewMailService(broker, cfg.Mail.Host, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.Sender, cfg.Mail.Port, cfg.Mail.ContactRecipient, logger),
		broker:      broker,
		renderer:    renderer,
		limiter:     newIPLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
	defer app.mailService.Close()

	app.mailService.SendWelcomeEmail()
	app.mailService.ForwardContactMessages()

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// sweepSessions deletes expired sessions once an hour.
func sweepSessions(store *userservice.PostgresSessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		n, err := store.DeleteExpired(context.Background())
		if err != nil {
			logger.Error("could not delete expired sessions", slog.String("error", err.Error()))
			continue
		}
		logger.Info("deleted expired sessions", slog.Int64("count", n))
	}
}
