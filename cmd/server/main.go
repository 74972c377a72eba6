// Package main is the entry point of the beat marketplace API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beatmarket/internal/config"
	"beatmarket/internal/handler"
	"beatmarket/internal/middleware"
	"beatmarket/internal/model"
	"beatmarket/internal/repository"
	"beatmarket/internal/service"
	"beatmarket/pkg/database"
	"beatmarket/pkg/kafka"
	"beatmarket/pkg/log"
	"beatmarket/pkg/paystack"
	"beatmarket/pkg/storage"
	"beatmarket/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. config and logging
	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("logger initialized")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// 2. data stores
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(
			&model.User{}, &model.Beat{}, &model.Order{}, &model.LineItem{},
			&model.Payment{}, &model.PurchasedBeat{}, &model.Payout{},
		); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}
	rdb, err := database.NewRedis(startCtx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	store, err := storage.NewMinIOStore(startCtx, cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	var (
		producer  *kafka.Producer
		publisher service.EventPublisher
	)
	if cfg.Kafka.Brokers != "" {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
	} else {
		log.Warnf("kafka.brokers is empty, domain events are disabled")
	}

	// 3. repositories
	userRepo := repository.NewUserRepository(db)
	beatRepo := repository.NewBeatRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	uploadRepo := repository.NewUploadRepository(rdb)
	lockRepo := repository.NewLockRepository(rdb)
	cacheRepo := repository.NewCacheRepository(rdb)

	// 4. services
	jwtManager := token.NewJWTManager(cfg.Auth.JWTSecret)
	gateway := paystack.NewClient(cfg.Paystack)
	hub := service.NewProgressHub()
	uploadService := service.NewUploadService(store, uploadRepo, hub, publisher, cfg.Upload)
	paymentService := service.NewPaymentService(userRepo, lockRepo, cacheRepo, gateway, cfg.Paystack)
	orderService := service.NewOrderService(orderRepo, payoutRepo, gateway, publisher, cfg.Paystack)
	downloadService := service.NewDownloadService(beatRepo, store, cfg.Paystack.DownloadURLExpiry)

	// 5. router
	gin.SetMode(cfg.Server.Mode)
	r := newRouter(cfg, jwtManager, routeHandlers{
		upload:   handler.NewUploadHandler(uploadService, hub, cfg.Upload),
		payment:  handler.NewPaymentHandler(paymentService),
		order:    handler.NewOrderHandler(orderService),
		download: handler.NewDownloadHandler(downloadService),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received, stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}

	// Part cleanup of finished uploads runs after the response; let it finish.
	uploadService.Wait()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("failed to close kafka producer: %v", err)
		}
	}
	log.Info("server stopped")
}

type routeHandlers struct {
	upload   *handler.UploadHandler
	payment  *handler.PaymentHandler
	order    *handler.OrderHandler
	download *handler.DownloadHandler
}

func newRouter(cfg config.Config, jwtManager *token.JWTManager, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(cfg.CORS))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiV1 := r.Group("/api/v1")
	{
		// Authenticated by the gateway signature, not a bearer token.
		apiV1.POST("/webhooks/paystack", h.order.Webhook)

		authed := apiV1.Group("")
		authed.Use(middleware.AuthMiddleware(jwtManager))

		uploads := authed.Group("/uploads")
		{
			uploads.POST("", h.upload.Upload)
			uploads.GET("/:id/status", h.upload.Status)
			uploads.GET("/:id/progress", h.upload.Progress)
		}

		authed.GET("/banks", h.payment.ListBanks)

		producer := authed.Group("/producers/me")
		producer.Use(middleware.RequireRole(model.RoleProducer))
		{
			producer.GET("/payment-profile", h.payment.GetProfile)
			producer.PUT("/bank-details", h.payment.UpdateBankDetails)
			producer.POST("/subaccount", h.payment.CreateSubaccount)
			producer.POST("/split", h.payment.CreateSplit)
			producer.PUT("/split", h.payment.UpdateSplitShare)
			producer.POST("/payment-setup", h.payment.SetupPayments)
		}

		authed.POST("/orders", h.order.CreateOrder)
		authed.POST("/payments/verify", h.order.VerifyPayment)
		authed.GET("/beats/:id/download", h.download.Download)
	}
	return r
}
