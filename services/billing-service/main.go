package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/chat-billing/pkg/aws"
	ddbpkg "github.com/yashrajoria/chat-billing/pkg/dynamodb"
	"github.com/yashrajoria/chat-billing/pkg/stripesig"
	"github.com/yashrajoria/chat-billing/services/billing-service/config"
	"github.com/yashrajoria/chat-billing/services/billing-service/controllers"
	"github.com/yashrajoria/chat-billing/services/billing-service/database"
	"github.com/yashrajoria/chat-billing/services/billing-service/repository"
	"github.com/yashrajoria/chat-billing/services/billing-service/routes"
	"github.com/yashrajoria/chat-billing/services/billing-service/services"
	"github.com/yashrajoria/chat-billing/services/common/auth"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
	"github.com/yashrajoria/chat-billing/services/common/logger"
	"github.com/yashrajoria/chat-billing/services/common/middleware"
	"go.uber.org/zap"
)

const serviceName = "billing-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	cwLogs, cwErr := awspkg.NewCloudWatchLogsClient(ctx, serviceName)
	if cwErr == nil && cwLogs.IsEnabled() {
		logger.InitializeWithWriter(cfg.AppEnv, cwLogs)
	} else {
		logger.Initialize(cfg.AppEnv)
	}
	zlog := logger.Log
	defer zlog.Sync() //nolint:errcheck
	if cwErr != nil {
		zlog.Warn("CloudWatch Logs unavailable, console logging only", zap.Error(cwErr))
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// AWS clients
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	var (
		snsClient awspkg.SNSPublisher
		s3Client  awspkg.ObjectPutter
		metrics   awspkg.MetricsRecorder
	)
	if awsErr != nil {
		zlog.Warn("AWS config unavailable, SNS/S3/metrics disabled", zap.Error(awsErr))
	} else {
		if cfg.PlanSNSTopicARN != "" {
			snsClient = awspkg.NewSNSClient(awsCfg)
		}
		if cfg.WebhookArchiveBucket != "" {
			s3Client = awspkg.NewS3Client(awsCfg)
		}
		if m, err := awspkg.NewMetricsClient(ctx); err == nil {
			metrics = m
		} else {
			zlog.Warn("CloudWatch metrics unavailable", zap.Error(err))
		}
	}

	store, closeStore, err := openDocumentStore(ctx, cfg, awsCfg, awsErr, zlog)
	if err != nil {
		zlog.Fatal("Failed to open document store", zap.String("store", cfg.DocumentStore), zap.Error(err))
	}
	defer closeStore()

	if len(cfg.WebhookSecrets()) == 0 {
		zlog.Warn("No Stripe webhook secret configured; webhooks will be answered with webhook_secret_missing")
	}

	// DI chain
	clock := services.Clock(time.Now)
	planRepo := repository.NewPlanRepository(store)
	notifier := services.NewPlanNotifier(snsClient, cfg.PlanSNSTopicARN, zlog)
	archiver := services.NewEventArchiver(s3Client, cfg.WebhookArchiveBucket, clock, zlog)
	reconciler := services.NewReconciler(planRepo, cfg, notifier, clock, zlog)
	verifier := stripesig.NewVerifier(cfg, stripesig.WithTolerance(cfg.WebhookTolerance))
	billingSvc := services.NewBillingService(planRepo, services.NewStripeGateway(cfg.StripeSecretKey()), cfg, services.URLs{
		CheckoutSuccess: cfg.CheckoutSuccessURL,
		CheckoutCancel:  cfg.CheckoutCancelURL,
		PortalReturn:    cfg.PortalReturnURL,
	}, zlog)

	webhookController := controllers.NewWebhookController(verifier, reconciler, archiver, metrics, zlog)
	billingController := controllers.NewBillingController(billingSvc)

	r := gin.New()
	r.Use(middleware.Recovery(zlog))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zlog))
	r.Use(apperrors.ErrorMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.MetricsMiddleware(metrics, serviceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName, "store": cfg.DocumentStore})
	})

	routes.RegisterBillingRoutes(r,
		webhookController,
		billingController,
		middleware.JWTAuth(auth.NewTokenParser(cfg.JWTSecret)),
		middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, 0),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	zlog.Info("Billing service started",
		zap.String("port", cfg.Port),
		zap.String("stripe_mode", string(cfg.Mode())),
		zap.String("store", cfg.DocumentStore),
	)
	<-quit
	zlog.Info("Shutting down billing service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	zlog.Info("Server exited cleanly")
}

// openDocumentStore builds the configured backend and a func that releases it.
func openDocumentStore(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, awsErr error, zlog *zap.Logger) (repository.DocumentStore, func(), error) {
	noop := func() {}

	switch cfg.DocumentStore {
	case config.StoreMemory:
		zlog.Warn("Using in-memory document store; plan records are lost on restart")
		return repository.NewMemoryStore(), noop, nil

	case config.StoreDynamoDB:
		if awsErr != nil {
			return nil, noop, fmt.Errorf("dynamodb store needs AWS config: %w", awsErr)
		}
		return repository.NewDynamoStore(ddbpkg.NewClientFromConfig(awsCfg), cfg.DDBTablePrefix), noop, nil

	case config.StoreMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewMongoStore(db), func() {
			if err := database.CloseMongo(client); err != nil {
				zlog.Warn("Mongo disconnect failed", zap.Error(err))
			}
		}, nil

	case config.StoreRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewRedisStore(client, "billing:"), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		db, err := database.ConnectPostgres(zlog, database.PostgresSettings{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			DBName:   cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSLMode,
			TimeZone: cfg.PostgresTimeZone,
		}, &repository.DocumentRow{})
		if err != nil {
			return nil, noop, err
		}
		return repository.NewGormStore(db), func() { _ = database.ClosePostgres(db) }, nil

	default:
		return nil, noop, fmt.Errorf("unknown document store %q", cfg.DocumentStore)
	}
}
