package filmsapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/films-api/internal/cache"
	"github.com/magabrotheeeer/films-api/internal/config"
	"github.com/magabrotheeeer/films-api/internal/events"
	"github.com/magabrotheeeer/films-api/internal/filestorage"
	"github.com/magabrotheeeer/films-api/internal/http/handlers/films"
	"github.com/magabrotheeeer/films-api/internal/http/handlers/users"
	"github.com/magabrotheeeer/films-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/films-api/internal/http/response"
	"github.com/magabrotheeeer/films-api/internal/lib/jwt"
	"github.com/magabrotheeeer/films-api/internal/lib/password"
	"github.com/magabrotheeeer/films-api/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/films-api/internal/lib/sl"
	"github.com/magabrotheeeer/films-api/internal/migrations"
	"github.com/magabrotheeeer/films-api/internal/storage"
	"github.com/magabrotheeeer/films-api/internal/storage/repository"
)

// App — HTTP‑сервер со всеми его зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	amqp   *amqp.Connection
}

// New подключается к хранилищам и брокеру и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "filmsapi.New"

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	if err = db.CheckDatabaseReady(ctx); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	files, err := filestorage.New(ctx, logger, cfg.S3, cfg.Uploads.Dir)
	if err != nil {
		return nil, err
	}
	if err = files.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	// без брокера события только логируются
	var (
		conn    *amqp.Connection
		channel rabbitmq.Channel
	)
	if cfg.RabbitMQ.URL != "" {
		conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, 2*time.Second)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.GetFilmQueues())
		if err != nil {
			return nil, err
		}
		channel = ch
	} else {
		logger.Warn("rabbitmq url is not set, film events are disabled")
	}
	publisher := events.NewPublisher(logger, channel, cfg.RabbitMQ.Exchange)

	filmRepo := cache.NewFilmRepository(logger, repository.NewFilms(db), cacheRedis, cfg.CacheTTL)
	userRepo := repository.NewUsers(db)
	locker := cache.NewLocker(cacheRedis, cfg.LockTTL)
	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	errs := response.NewErrors(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	trusted, err := middlewarectx.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	RegisterRoutes(router, Handlers{
		Films:         films.New(logger, filmRepo, userRepo, locker, publisher),
		Users:         users.New(logger, userRepo, password.NewBcrypt(0), tokens),
		Auth:          middlewarectx.NewAuth(logger, tokens, filmRepo, errs),
		Upload:        middlewarectx.NewUpload(logger, cfg.Uploads.Dir, files, errs),
		Errors:        errs,
		Metrics:       middlewarectx.NewMetrics(reg),
		Gatherer:      reg,
		UploadField:   cfg.Uploads.Field,
		UploadMaxSize: cfg.Uploads.MaxSize(),

		TrustedProxies: trusted,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		amqp:   conn,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем плавно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
