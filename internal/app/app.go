package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/config"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/database"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/delivery/httpd"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/integration"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/storage"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/validator"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/worker"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/worker/queue"
	"github.com/RubachokBoss/relief-fund/portal-service/pkg/rabbitmq"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type App struct {
	server       *http.Server
	logger       zerolog.Logger
	config       *config.Config
	db           *sql.DB
	pool         *worker.WorkerPool
	publisher    integration.EventPublisher
	reviewWorker worker.ReviewWorker
}

type repositories struct {
	documents     repository.DocumentRepository
	students      repository.StudentRepository
	statuses      repository.StatusRepository
	notifications repository.NotificationRepository
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		logger: log,
		config: cfg,
	}

	repos, err := a.openRepositories()
	if err != nil {
		return nil, err
	}

	blobs, err := newBlobStore(cfg.Blob, log)
	if err != nil {
		a.closeDB()
		return nil, err
	}

	a.pool = worker.NewWorkerPool(cfg.Workers.PoolSize, log)

	var broker *rabbitmq.Connection
	a.publisher = integration.NewNoopPublisher(log)
	if cfg.RabbitMQ.Enabled {
		broker, err = rabbitmq.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			a.closeDB()
			return nil, err
		}

		a.publisher, err = integration.NewRabbitMQPublisher(broker, integration.PublisherConfig{
			Exchange:            cfg.RabbitMQ.Exchange,
			SubmittedRoutingKey: cfg.RabbitMQ.SubmittedRoutingKey,
			ReviewedRoutingKey:  cfg.RabbitMQ.ReviewedRoutingKey,
			PublishTimeout:      cfg.RabbitMQ.PublishTimeout,
		}, log)
		if err != nil {
			broker.Close()
			a.closeDB()
			return nil, err
		}
	}

	docValidator := validator.New(validator.Config{
		MaxFileSize:  cfg.Validation.MaxFileSize,
		AllowedTypes: cfg.Validation.AllowedTypes,
	}, validator.NewHeuristicChecker(cfg.Validation.ContentDelay), log)

	notificationService := service.NewNotificationService(repos.notifications, log)
	documentService := service.NewDocumentService(
		repos.documents,
		docValidator,
		blobs,
		notificationService,
		a.publisher,
		a.pool,
		log,
	)
	progressService := service.NewProgressService(repos.documents, log)
	statusService := service.NewStatusService(repos.statuses, notificationService, log)
	studentService := service.NewStudentService(
		repos.students,
		repos.documents,
		repos.statuses,
		notificationService,
		log,
	)

	generator := integration.NewGeminiClient(integration.GeminiConfig{
		APIKey:       cfg.Assistant.APIKey,
		Model:        cfg.Assistant.Model,
		BaseURL:      cfg.Assistant.BaseURL,
		Timeout:      cfg.Assistant.Timeout,
		HistoryLimit: cfg.Assistant.HistoryLimit,
	}, log)
	if cfg.Assistant.APIKey == "" {
		log.Warn().Msg("Assistant API key not configured, assistant runs in offline mode")
	}
	assistantService := service.NewAssistantService(
		generator,
		repository.NewMemoryConversationRepository(log),
		cfg.Assistant.Timeout,
		log,
	)

	if broker != nil {
		if err := a.setupReviewWorker(broker, documentService); err != nil {
			a.publisher.Close()
			a.closeDB()
			return nil, err
		}
	}

	handler := httpd.NewHandler(httpd.Services{
		Documents:     documentService,
		Progress:      progressService,
		Status:        statusService,
		Notifications: notificationService,
		Students:      studentService,
		Assistant:     assistantService,
	}, cfg.Validation.MaxFileSize, log)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpd.RequestLogger(log))
	router.Use(httpd.Recovery(log))
	router.Use(httpd.NewCORS(httpd.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	a.server = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

func (a *App) openRepositories() (*repositories, error) {
	log := a.logger

	if a.config.Storage.Driver != config.DriverPostgres {
		log.Info().Msg("Using in-memory storage")
		return &repositories{
			documents:     repository.NewMemoryDocumentRepository(log),
			students:      repository.NewMemoryStudentRepository(log),
			statuses:      repository.NewMemoryStatusRepository(log),
			notifications: repository.NewMemoryNotificationRepository(log),
		}, nil
	}

	db, err := database.NewPostgres(a.config.Database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	a.db = db
	return &repositories{
		documents:     repository.NewDocumentRepository(db, log),
		students:      repository.NewStudentRepository(db, log),
		statuses:      repository.NewStatusRepository(db, log),
		notifications: repository.NewNotificationRepository(db, log),
	}, nil
}

func newBlobStore(cfg config.BlobConfig, log zerolog.Logger) (storage.BlobStore, error) {
	if cfg.Driver != config.DriverMinIO {
		return storage.NewMemoryStorage(), nil
	}

	blobs, err := storage.NewMinIOStorage(storage.MinIOConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
		Timeout:   cfg.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return blobs, nil
}

func (a *App) setupReviewWorker(broker *rabbitmq.Connection, documents service.DocumentService) error {
	cfg := a.config.RabbitMQ

	if err := broker.DeclareQueue(cfg.ReviewQueue, cfg.Exchange, cfg.ReviewRoutingKey); err != nil {
		return err
	}

	channel, err := broker.NewChannel()
	if err != nil {
		return err
	}

	consumer := queue.NewRabbitMQConsumer(channel, cfg.ReviewQueue, cfg.ConsumerTag, cfg.Prefetch, a.logger)
	a.reviewWorker = worker.NewReviewWorker(a.pool, consumer, documents, a.logger)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	if err := a.pool.Start(ctx); err != nil {
		return err
	}

	if a.reviewWorker != nil {
		if err := a.reviewWorker.Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Failed to start review worker")
			return err
		}
	}

	a.logger.Info().Msgf("Starting portal service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down portal service...")

	err := a.server.Shutdown(ctx)

	if a.reviewWorker != nil {
		if stopErr := a.reviewWorker.Stop(); stopErr != nil {
			a.logger.Error().Err(stopErr).Msg("Failed to stop review worker")
		}
	}

	// drains pending event publications before the broker goes away
	if stopErr := a.pool.Stop(); stopErr != nil {
		a.logger.Error().Err(stopErr).Msg("Failed to stop worker pool")
	}

	if closeErr := a.publisher.Close(); closeErr != nil {
		a.logger.Error().Err(closeErr).Msg("Failed to close RabbitMQ connection")
	}

	a.closeDB()

	if err != nil {
		a.logger.Error().Err(err).Msg("Server shutdown error")
		return err
	}

	a.logger.Info().Msg("Portal service stopped")
	return nil
}

func (a *App) closeDB() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close database connection")
	}
	a.db = nil
}
