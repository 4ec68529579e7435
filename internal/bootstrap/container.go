package bootstrap

import (
	"context"
	"log"

	"qnagen-be/internal/config"
	"qnagen-be/internal/controller"
	"qnagen-be/internal/handler"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/pkg/mailer"
	"qnagen-be/internal/repository/memory"
	"qnagen-be/internal/repository/unitofwork"
	"qnagen-be/internal/service"
	"qnagen-be/internal/websocket"
	"qnagen-be/pkg/generation/local"
	"qnagen-be/pkg/generation/remote"
	"qnagen-be/pkg/llm/factory"
	"qnagen-be/pkg/qgen"
	"qnagen-be/pkg/qgen/answer"
	"qnagen-be/pkg/qgen/export"
	"qnagen-be/pkg/qgen/orchestrator"

	pktNats "qnagen-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	GenerationController controller.IGenerationController
	CreditController     controller.ICreditController
	PaymentController    controller.IPaymentController
	HealthController     controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	SessionEventsHandler *handler.SessionEventsHandler
	WebSocketHub         *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// generationBackend is what both backends provide.
type generationBackend interface {
	qgen.Service
	qgen.Exporter
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
		cfg.App.ClientURL,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { pubSub.Close() })

	// 3. Infrastructure
	// NATS (optional)
	var (
		eventPublisher  service.EventPublisher
		eventSubscriber service.EventSubscriber
	)
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			eventSubscriber = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// Redis (optional)
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
			rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, func() { rdb.Close() })
		}
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/session_events.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run(ctx)

	// 4. Generation backend
	backend := newGenerationBackend(cfg, rdb, sysLogger)

	// 5. Services
	creditService := service.NewCreditService(uowFactory, eventPublisher, sysLogger, cfg.Credits.StartingGrant)

	var policy qgen.SettlementPolicy = qgen.KeepDebit{}
	if cfg.Credits.RefundOnFailure {
		policy = qgen.RefundOnFailure{}
	}
	orch := orchestrator.New(backend, creditService, orchestrator.Config{
		CallTimeout:         cfg.Generation.CallTimeout,
		ValidateBeforeDebit: cfg.Generation.ValidateBeforeDebit,
		ListWorkers:         cfg.Generation.ListWorkers,
	}, orchestrator.WithPolicy(policy), orchestrator.WithLogger(sysLogger))

	answers := answer.New(backend, cfg.Generation.CallTimeout,
		answer.WithLogger(sysLogger),
		answer.WithNotifier(service.AnswerNotifier(wsHub)),
	)
	exporter := export.New(backend, sysLogger)

	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL)
	generationService := service.NewGenerationService(sessionRepo, creditService, orch, answers, exporter, wsHub, sysLogger)

	paymentService := service.NewPaymentService(
		uowFactory,
		service.NewSnapClient(cfg.Payment.MidtransServerKey, cfg.Payment.MidtransIsProduction),
		eventPublisher,
		pubSub,
		emailService,
		sysLogger,
		service.PaymentSettings{
			ServerKey:   cfg.Payment.MidtransServerKey,
			Price:       cfg.Payment.SubscriptionPrice,
			Currency:    cfg.Payment.Currency,
			Months:      cfg.Payment.SubscriptionMonths,
			Credits:     cfg.Payment.SubscriptionCredits,
			ClientURL:   cfg.App.ClientURL,
			LedgerTopic: cfg.Payment.LedgerTopic,
		},
	)

	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Payment.LedgerTopic,
		eventSubscriber,
		generationService,
		sysLogger,
	)

	// 6. Controllers
	c.GenerationController = controller.NewGenerationController(generationService, cfg.Keys.JWTSecret)
	c.CreditController = controller.NewCreditController(creditService, cfg.Keys.JWTSecret)
	c.PaymentController = controller.NewPaymentController(paymentService, cfg.Keys.JWTSecret, sysLogger)
	c.HealthController = controller.NewHealthController(sessionRepo)
	c.SessionEventsHandler = handler.NewSessionEventsHandler(generationService, wsHub, cfg.Keys.JWTSecret, wsLogger)
	c.WebSocketHub = wsHub
	c.ConsumerService = consumerService
	return c
}

func newGenerationBackend(cfg *config.Config, rdb *redis.Client, sysLogger logger.ILogger) generationBackend {
	if cfg.Generation.Backend != "local" {
		log.Printf("[INFO] Using remote generation service at %s", cfg.Generation.ServiceURL)
		return remote.NewClient(cfg.Generation.ServiceURL, cfg.Generation.CallTimeout)
	}

	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Generation.LLMProvider,
		Model:    cfg.Generation.LLMModel,
		BaseURL:  llmBaseURL(cfg),
		APIKey:   cfg.Keys.OpenAI,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Generation.LLMProvider, cfg.Generation.LLMModel)

	var store local.SyllabusStore
	if rdb != nil {
		store = local.NewRedisStore(rdb, cfg.Generation.SyllabusTTL)
	} else {
		store = local.NewMemoryStore(cfg.Generation.SyllabusTTL)
	}
	return local.NewBackend(llmProvider, store, sysLogger, local.WithExportFormat(cfg.Generation.ExportFormat))
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.Generation.LLMProvider == "openai" {
		return cfg.Generation.OpenAIBaseURL
	}
	return cfg.Generation.OllamaBaseURL
}

// Close releases broker and cache connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.Logger.Sync()
}
