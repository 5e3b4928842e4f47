// Пакет redactor собирает сервер редактора: хранилище документов и тегов, сессии редактирования,
// экспорт, картинки, синхронизацию с удаленным хранилищем и периодические задачи.
//
// Основные возможности:
//   - HTTP API документов, тегов и сессий редактирования.
//   - Экспорт документов в Markdown, HTML и PDF.
//   - Загрузка картинок и миниатюр.
//   - Автосохранение открытых сессий по расписанию.
//   - Уведомления о синхронизации и автосохранении по вебсокетам.
//   - Метрики Prometheus на отдельном порту.
package redactor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	cloudsync "github.com/aisa-it/redactor/internal/redactor/cloud-sync"
	"github.com/aisa-it/redactor/internal/redactor/config"
	"github.com/aisa-it/redactor/internal/redactor/cronmanager"
	"github.com/aisa-it/redactor/internal/redactor/dao"
	"github.com/aisa-it/redactor/internal/redactor/export"
	filestorage "github.com/aisa-it/redactor/internal/redactor/file-storage"
	"github.com/aisa-it/redactor/internal/redactor/maintenance"
	"github.com/aisa-it/redactor/internal/redactor/notifications"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	autosaveJob     = "autosave"
	assetsCleanJob  = "assets_clean"
	sessionCleanJob = "sessions_clean"

	sessionIdleTimeout = 2 * time.Hour
)

type Services struct {
	db       *gorm.DB
	cfg      *config.Config
	docs     *dao.DocumentStore
	tags     *dao.TagStore
	exporter *export.Exporter
	storage  filestorage.FileStorage
	hub      *notifications.Hub
	sessions *sessionRegistry
	cron     *cronmanager.CronManager

	// сериализует сохранение списка документов
	saveMu sync.Mutex

	settingsMu sync.RWMutex
	settings   AutosaveSettings
}

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "Redactor")
		return next(c)
	}
}

// NewServices связывает хранилища и сервисы. remote может быть nil, тогда синхронизация отключена.
func NewServices(db *gorm.DB, cfg *config.Config, remote dao.Remote, storage filestorage.FileStorage) *Services {
	s := &Services{
		db:       db,
		cfg:      cfg,
		docs:     dao.NewDocumentStore(db, remote),
		tags:     dao.NewTagStore(db),
		exporter: export.NewExporter(cfg.PDFExportTimeout),
		storage:  storage,
		hub:      notifications.NewHub(),
		sessions: newSessionRegistry(),
		settings: AutosaveSettings{
			Enabled:  !cfg.AutosaveDisabled,
			Interval: config.ClampAutosaveInterval(cfg.AutosaveInterval),
		},
	}

	s.docs.State().Subscribe(func(status dao.SyncStatus) {
		s.hub.Broadcast(notifications.TypeSyncStatus, status)
	})

	s.cron = cronmanager.NewCronManager(cronmanager.JobRegistry{
		autosaveJob: cronmanager.Job{
			Func:     s.autosaveAll,
			Schedule: cronmanager.Every(s.settings.Interval),
		},
		assetsCleanJob: cronmanager.Job{
			Func: func() {
				maintenance.NewAssetCleaner(db, storage, maintenance.DefaultGrace).CleanAssets(context.Background())
			},
			Schedule: "0 1 * * *", // daily at 01:00
		},
		sessionCleanJob: cronmanager.Job{
			Func:     s.closeIdleSessions,
			Schedule: "*/10 * * * *",
		},
	})
	return s
}

// NewEcho создает echo с обработчиком ошибок, валидатором, общими middleware и маршрутами API.
func (s *Services) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		if code >= http.StatusInternalServerError {
			slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		}
		EErrorMsgStatus(c, nil, code)
	}

	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: "5M",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/assets/"
		},
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/ws/") ||
				strings.HasPrefix(c.Path(), "/api/assets/")
		},
	}))
	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
	}))

	e.Validator = NewRequestValidator()

	api := e.Group("/api/")
	s.AddDocServices(api)
	s.AddTagServices(api)
	s.AddSessionServices(api)
	s.AddAssetServices(api)
	s.AddSettingsServices(api)

	api.GET("_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	api.GET("ws/", func(c echo.Context) error {
		s.hub.Handle("", c.Response(), c.Request())
		return nil
	})
	return e
}

// Server запускает сервер редактора и блокируется до остановки.
func Server(db *gorm.DB, cfg *config.Config, version string) {
	var storage filestorage.FileStorage
	var err error
	if cfg.MinioEnabled() {
		storage, err = filestorage.NewMinioStorage(cfg.AWSEndpoint, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSUseSSL, cfg.AWSBucketName)
	} else {
		storage, err = filestorage.NewLocalStorage(cfg.AssetsPath)
	}
	if err != nil {
		slog.Error("Fail init assets storage", "err", err)
		os.Exit(1)
	}

	var remote dao.Remote
	var collectors []prometheus.Collector
	if cfg.RemoteSyncURL != nil {
		client := cloudsync.NewClient(cfg.RemoteSyncURL, cloudsync.Options{
			Token:    cfg.RemoteSyncToken,
			RetryMax: cfg.RemoteRetryMax,
			Timeout:  cfg.RemoteTimeout,
		})
		remote = client
		collectors = append(collectors, client.Collectors()...)
	}

	s := NewServices(db, cfg, remote, storage)
	collectors = append(collectors, s.exporter.Collectors()...)
	for _, col := range collectors {
		if err := prometheus.Register(col); err != nil {
			slog.Error("Register metrics collector", "err", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if docs, err := s.docs.Load(ctx); err != nil {
		slog.Error("Load documents", "err", err)
	} else {
		slog.Info("Documents loaded", "count", len(docs), "sync", s.docs.State().Status())
	}

	if err := s.cron.LoadJobs(); err != nil {
		slog.Error("Failed to load cron jobs", "err", err)
		os.Exit(1)
	}
	if !s.settings.Enabled {
		s.cron.RemoveJob(autosaveJob)
	}
	s.cron.Start()

	e := s.NewEcho()
	e.Use(echoprometheus.NewMiddleware("redactor"))

	// Front handler
	if cfg.FrontFilesPath != "" {
		slog.Info("Start front routing")
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  cfg.FrontFilesPath,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/")
			},
		}))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown server", "err", err)
		}
		s.cron.Stop()
		s.autosaveAll()
	}()

	// Prometheus metrics
	go func() {
		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "redactor",
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))

		if err := prometheus.Register(bootTimeGauge); err != nil {
			slog.Error("Register boot time gauge", "err", err)
			os.Exit(1)
		}

		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	slog.Info("Start redactor server", "version", version, "addr", cfg.ListenAddr)
	if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server fail", "err", err)
	}
	stop()
	<-done
}
