package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vivekg189/smart-classroom/config"
	"github.com/vivekg189/smart-classroom/constant"
	jobHandler "github.com/vivekg189/smart-classroom/handler"
	"github.com/vivekg189/smart-classroom/media"
	"github.com/vivekg189/smart-classroom/pkg/metrics"
	"github.com/vivekg189/smart-classroom/pkg/rabbitmq"
	"github.com/vivekg189/smart-classroom/repository"
	"github.com/vivekg189/smart-classroom/service"
	"github.com/vivekg189/smart-classroom/storage"
	"github.com/vivekg189/smart-classroom/transcribe"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewRabbitMQConn")
	}

	repo := repository.NewRepo(cfg.DB)
	if err := repo.AutoMigrate(); err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("AutoMigrate")
	}

	store, err := storage.NewMinioStore(ctx, cfg.Storage, cfg.MinIOBucket)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewMinioStore")
	}

	recognizer := transcribe.NewStreamRecognizer(cfg.Transcription.LocalCommand)
	localEngine := transcribe.NewLocalEngine(recognizer, func() media.Player {
		return media.NewFFPlay(cfg.Transcription.PlayerVolume)
	}, cfg.Transcription)
	remoteEngine := transcribe.NewRemoteEngine(cfg.Transcription)
	engine := transcribe.NewEngine(localEngine, remoteEngine)

	publisher := rabbitmq.NewPublisher(conn, cfg.Queue)
	uploadService := service.NewUploadService(repo, store, media.NewFFProbe(), engine, cfg)
	transcriptionService := service.NewTranscriptionService(repo, store, engine, publisher, cfg)

	serviceDeps := jobHandler.ServiceDependencies{
		TranscriptionService: transcriptionService,
	}

	consumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.TranscriptionJobHandler)
	go func() {
		if err := consumer.Consume(ctx, serviceDeps); err != nil && !errors.Is(err, context.Canceled) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("transcription consumer error")
		}
	}()

	r := gin.Default()
	r.Use(requestLogger(ctx))
	r.Use(metrics.PrometheusMiddleware("smart-classroom"))
	addHealth(r)
	r.GET("/metrics", metrics.Handler())
	jobHandler.NewHTTPHandler(uploadService, transcriptionService).Register(r)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")

	// ctx is already canceled here, Shutdown needs its own deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := handler.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

// requestLogger puts the base logger into every request context so the
// services can log through zerolog.Ctx on the HTTP path too.
func requestLogger(ctx context.Context) gin.HandlerFunc {
	logger := zerolog.Ctx(ctx)
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
