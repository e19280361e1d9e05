package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gruenerator-be/internal/config"
	"gruenerator-be/internal/constant"
	"gruenerator-be/internal/controller"
	"gruenerator-be/internal/handler"
	"gruenerator-be/internal/pkg/logger"
	"gruenerator-be/internal/pkg/metrics"
	"gruenerator-be/internal/repository/memory"
	"gruenerator-be/internal/repository/redisstore"
	"gruenerator-be/internal/repository/unitofwork"
	"gruenerator-be/internal/service"
	"gruenerator-be/internal/websocket"
	"gruenerator-be/pkg/ai/pipeline"
	"gruenerator-be/pkg/ai/router"
	"gruenerator-be/pkg/crawler"
	"gruenerator-be/pkg/enrichment"
	"gruenerator-be/pkg/events"
	"gruenerator-be/pkg/interactive"
	"gruenerator-be/pkg/intent"
	"gruenerator-be/pkg/llm"
	"gruenerator-be/pkg/llm/factory"
	pktNats "gruenerator-be/pkg/nats"
	"gruenerator-be/pkg/prompt"
	"gruenerator-be/pkg/store"
	"gruenerator-be/pkg/websearch"
	"gruenerator-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	InteractiveController controller.IInteractiveController
	ChatController        controller.IChatController
	ProgressHandler       *handler.ProgressHandler

	// Background services, started by main
	ConsumerServices []service.IConsumerService
	WebSocketHub     *websocket.Hub

	Metrics *metrics.Metrics
	Logger  logger.ILogger

	closers []func() error
}

// NewContainer wires the application. db may be nil, which disables the
// generation history. Redis and NATS are optional unless the session
// backend requires Redis.
func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Metrics: metrics.New(), Logger: sysLogger}

	// 1. Event bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, pubSub.Close)
	busPublisher := service.NewPublisherService(service.GenerationTopic, pubSub)

	lifecycle := events.MultiPublisher{busPublisher}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "NATS unavailable, lifecycle events stay in-process", map[string]interface{}{"error": err.Error()})
		} else {
			lifecycle = append(lifecycle, natsPub)
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	// 2. Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			if cfg.App.SessionBackend == "redis" {
				return nil, fmt.Errorf("redis session backend: %w", err)
			}
			sysLogger.Warn("BOOTSTRAP", "Redis unreachable, websocket fan-out is local only", map[string]interface{}{"error": err.Error()})
			rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, rdb.Close)
		}
	}

	// 3. Stores
	var sessions store.SessionStore
	var checkpoints workflow.CheckpointStore
	switch cfg.App.SessionBackend {
	case "redis":
		sessions = redisstore.NewSessionRepository(rdb, cfg.App.SessionTTL)
		checkpoints = redisstore.NewCheckpointRepository(rdb, cfg.App.SessionTTL)
	default:
		sessions = memory.NewSessionRepository(cfg.App.SessionTTL)
		checkpoints = memory.NewCheckpointRepository(cfg.App.SessionTTL)
	}

	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	}

	// 4. AI stack
	provider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.BaseURL, cfg.Ai.APIKey, cfg.Ai.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})

	catalog, err := prompt.LoadCatalog(cfg.Prompt.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("prompt catalog: %w", err)
	}
	assembler := prompt.NewCatalogAssembler(catalog)

	var searcher websearch.Searcher
	if cfg.Search.SearXNGURL != "" {
		searcher = websearch.NewSearXNGClient(cfg.Search.SearXNGURL, cfg.Search.Timeout)
	} else {
		sysLogger.Warn("BOOTSTRAP", "SEARXNG_URL not set, web search disabled", nil)
	}

	pageCrawler := crawler.NewHTTPCrawler()
	var knowledge enrichment.KnowledgeSource
	if uowFactory != nil {
		knowledge = service.NewHistoryKnowledgeSource(uowFactory, 3)
	}
	enricher := enrichment.NewDefaultEnricher(pageCrawler, knowledge, enrichment.Options{
		MaxURLs:          cfg.Workflow.MaxCrawlURLs,
		CrawlTimeout:     cfg.Workflow.CrawlTimeout,
		MaxContentLength: cfg.Workflow.MaxContentLength,
	}, sysLogger)

	// 5. Interactive workflow
	wf, err := interactive.New(interactive.Deps{
		Provider:    provider,
		Searcher:    searcher,
		Crawler:     pageCrawler,
		Enricher:    enricher,
		Assembler:   assembler,
		Catalog:     catalog,
		Sessions:    sessions,
		Checkpoints: checkpoints,
		Logger:      sysLogger,
	}, interactive.Config{
		MaxSearchResults: cfg.Search.MaxResults,
		ResultsPerQuery:  cfg.Search.ResultsPerQuery,
		CrawlEnabled:     cfg.Workflow.CrawlEnabled,
		CrawlCandidates:  cfg.Workflow.CrawlCandidates,
		MaxCrawlURLs:     cfg.Workflow.MaxCrawlURLs,
		CrawlTimeout:     cfg.Workflow.CrawlTimeout,
		MaxContentLength: cfg.Workflow.MaxContentLength,
		MaxQuestions:     cfg.Workflow.MaxQuestions,
	},
		workflow.WithStepLimit(cfg.Workflow.StepLimit),
		workflow.WithObserver(c.Metrics.NodeObserver()),
		workflow.WithObserver(service.ProgressObserver(busPublisher, sysLogger)),
	)
	if err != nil {
		return nil, err
	}

	// 6. Chat routing
	r, err := newRouter(provider, assembler, c.Metrics, sysLogger)
	if err != nil {
		return nil, err
	}
	classifier := intent.NewClassifier(provider, cfg.Ai.ClassifierModel, sysLogger)

	// 7. Services
	interactiveService := service.NewInteractiveService(wf, lifecycle, uowFactory, c.Metrics, sysLogger)
	chatService := service.NewChatService(
		classifier,
		r,
		interactiveService,
		memory.NewChatMemory(cfg.App.SessionTTL, constant.ChatHistoryLimit),
		lifecycle,
		c.Metrics,
		sysLogger,
	)

	// 8. Websocket progress
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	c.ProgressHandler = handler.NewProgressHandler(c.WebSocketHub, wsLogger)

	c.ConsumerServices = append(c.ConsumerServices,
		service.NewProgressService(pubSub, service.GenerationTopic, c.WebSocketHub, wsLogger),
	)
	if uowFactory != nil {
		c.ConsumerServices = append(c.ConsumerServices,
			service.NewConsumerService(pubSub, service.GenerationTopic, uowFactory, sysLogger),
		)
	} else {
		sysLogger.Warn("BOOTSTRAP", "No database configured, generation history disabled", nil)
	}

	// 9. Controllers
	c.InteractiveController = controller.NewInteractiveController(interactiveService)
	c.ChatController = controller.NewChatController(chatService)

	return c, nil
}

// newRouter builds one generation pipeline per route.
func newRouter(provider llm.Provider, assembler prompt.Assembler, m *metrics.Metrics, log logger.ILogger) (*router.Router, error) {
	routes := []string{
		intent.RouteAntragSimple,
		intent.RouteSocial,
		intent.RouteSharepic,
		intent.RouteRede,
		intent.RouteWahlprogramm,
		intent.RouteLeichteSprache,
		intent.RouteUniversal,
	}
	runners := make(map[string]router.Runner, len(routes))
	for _, route := range routes {
		p, err := pipeline.NewGenerationPipeline(route, provider, assembler, pipeline.Config{}, log,
			workflow.WithObserver(m.NodeObserver()),
		)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", route, err)
		}
		runners[route] = p
	}
	return router.NewRouter(runners, log)
}

// Start runs the background consumers and the websocket hub until ctx ends.
// Consumers subscribe before the server accepts requests so no event is lost.
func (c *Container) Start(ctx context.Context) error {
	for _, consumer := range c.ConsumerServices {
		if err := consumer.Consume(ctx); err != nil {
			return err
		}
	}
	go c.WebSocketHub.Run(ctx)
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
