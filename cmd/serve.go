package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/backend"
	"github.com/emprendyup/ms-go-reconciler/app/controller"
	"github.com/emprendyup/ms-go-reconciler/app/entity"
	reconcilergrpc "github.com/emprendyup/ms-go-reconciler/app/grpc"
	"github.com/emprendyup/ms-go-reconciler/app/messaging"
	"github.com/emprendyup/ms-go-reconciler/app/provider"
	"github.com/emprendyup/ms-go-reconciler/app/repository"
	"github.com/emprendyup/ms-go-reconciler/app/service"
	"github.com/emprendyup/ms-go-reconciler/app/types"
	"github.com/emprendyup/ms-go-reconciler/config"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the reconciler service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type internalAuth struct {
	echo *authmiddleware.EchoInternalAuthMiddleware
	grpc *authmiddleware.GRPCInternalAuthMiddleware
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, reconcilerService, cleanup := mustCreateReconcilerService()
	defer cleanup()

	variantService := service.NewVariantService()
	webhookController := controller.NewWebhookController(reconcilerService)
	variantController := controller.NewVariantController(variantService, cfg.App.ServiceName)
	grpcVariantServer := reconcilergrpc.NewServer(variantService)

	var auth internalAuth
	if addr := strings.TrimSpace(cfg.InternalEndpoints.AuthGRPCAddr); addr != "" {
		authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), addr)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
		}
		defer authGRPCClient.Close()

		internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
		auth.echo = authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
		auth.grpc = authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)
	} else {
		logrus.Warn("AUTH_SERVICE_GRPC_ADDR is not set, internal endpoints are unauthenticated")
	}

	e := setupHTTPServer(webhookController, variantController, auth.echo, cfg.App.ServiceName)
	grpcSrv, healthSrv, lis := setupGRPCServer(cfg, grpcVariantServer, auth.grpc, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	healthSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	webhookController *controller.WebhookController,
	variantController *controller.VariantController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", variantController.Health)

	api := e.Group("/api")
	api.POST("/epayco/confirmation", webhookController.EpaycoConfirmation)
	api.GET("/epayco/confirmation", webhookController.EpaycoAck)
	api.POST("/webhooks/mercadopago", webhookController.MercadoPagoWebhook)
	api.GET("/webhooks/mercadopago", webhookController.MercadoPagoAck)

	internal := e.Group("/internal", requireRequestID())
	if internalAuthMiddleware != nil {
		internal.Use(internalAuthMiddleware.RequireInternalAccess(appServiceName))
	}
	internal.POST("/variants/resolve", variantController.Resolve)
	internal.POST("/variants/validate", variantController.Validate)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	variantServer *reconcilergrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, *health.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	interceptors := []grpc.UnaryServerInterceptor{
		reconcilergrpc.RecoveryInterceptor(),
		reconcilergrpc.RequestIDInterceptor(),
		reconcilergrpc.LoggingInterceptor(),
	}
	if internalAuthMiddleware != nil {
		interceptors = append(interceptors, internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName))
	}

	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	reconcilergrpc.RegisterVariantServiceServer(grpcSrv, variantServer)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(reconcilergrpc.VariantServiceDesc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)

	return grpcSrv, healthSrv, lis
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	return db
}

func newBackendClients(cfg *config.Config) (*backend.WebhookClient, *backend.GraphQLClient) {
	webhookClient := backend.NewWebhookClient(cfg.Backend.WebhookURL, cfg.App.APIKey, cfg.Backend.HTTPTimeout)
	graphQLClient := backend.NewGraphQLClient(cfg.Backend.GraphQLURL, cfg.Backend.APIToken, cfg.Backend.HTTPTimeout)
	return webhookClient, graphQLClient
}

func newOutboxService(
	cfg *config.Config,
	db *sql.DB,
	webhookClient *backend.WebhookClient,
	graphQLClient *backend.GraphQLClient,
) *service.OutboxService {
	posters := map[string]service.JSONPoster{
		entity.OutboxKindBackendWebhook: webhookClient.Poster(),
	}
	return service.NewOutboxService(repository.NewOutboxRepository(db), posters, graphQLClient, cfg.Outbox)
}

func mustCreateReconcilerService() (*config.Config, *service.ReconcilerService, func()) {
	cfg := mustLoadConfig()

	epaycoProvider := provider.NewEpaycoProvider(provider.EpaycoConfig{
		PrivateKey: cfg.Epayco.PrivateKey,
		Policy:     provider.ParseSignaturePolicy(cfg.Epayco.SignaturePolicy),
	})
	mercadoPagoProvider := provider.NewMercadoPagoProvider(provider.MercadoPagoConfig{
		AccessToken:   cfg.MercadoPago.AccessToken,
		WebhookSecret: cfg.MercadoPago.WebhookSecret,
		APIBaseURL:    cfg.MercadoPago.APIBaseURL,
		Policy:        provider.ParseSignaturePolicy(cfg.MercadoPago.SignaturePolicy),
		HTTPTimeout:   cfg.MercadoPago.HTTPTimeout,
	})
	webhookClient, graphQLClient := newBackendClients(cfg)

	reconcilerService := service.NewReconcilerService(epaycoProvider, mercadoPagoProvider, webhookClient, graphQLClient)

	var closers []func()

	if cfg.MySQL.Enabled() {
		db := mustOpenDatabase(cfg)
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		})

		reconcilerService.SetNotificationLog(repository.NewNotificationLogRepository(db))
		reconcilerService.SetDeliveryQueue(newOutboxService(cfg, db, webhookClient, graphQLClient))
	} else {
		logrus.Warn("MYSQL_DSN is not set, notification journal and outbox are disabled")
	}

	if cfg.RabbitMQ.Enabled() {
		rabbitClient := messaging.NewRabbitMQClient(messaging.RabbitMQConfig{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RetryCount: cfg.RabbitMQ.RetryCount,
			RetryDelay: cfg.RabbitMQ.RetryDelay,
		})
		if err := rabbitClient.Connect(); err != nil {
			logrus.WithError(err).Error("Failed to connect to RabbitMQ, payment events are disabled")
		} else {
			closers = append(closers, func() {
				if err := rabbitClient.Close(); err != nil {
					logrus.WithError(err).Warn("Failed to close RabbitMQ connection")
				}
			})
			reconcilerService.SetEventPublisher(messaging.NewPaymentEventPublisher(rabbitClient))
		}
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	return cfg, reconcilerService, cleanup
}
