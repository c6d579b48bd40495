package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"bakehouse/internal/antibot"
	"bakehouse/internal/cache"
	"bakehouse/internal/checkout"
	"bakehouse/internal/config"
	"bakehouse/internal/notify"
	"bakehouse/internal/router"
	"bakehouse/internal/store"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}
	st := store.New(db)

	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()
	tags := cache.New(rdb)

	producer := notify.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	sender := &notify.SMTPSender{Addr: cfg.SMTPAddr, From: cfg.MailFrom, Log: log}
	consumer := notify.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, sender, log)
	defer consumer.Close()
	go consumer.Run(ctx)

	var verifier checkout.CaptchaVerifier
	if cfg.TurnstileSecret != "" {
		verifier = antibot.New(cfg.TurnstileSecret)
	}

	coordinator := checkout.NewCoordinator(st, verifier, producer, tags, log, cfg.DeliveryFee)

	r := gin.Default()
	router.Setup(r, router.Deps{
		DB:          db,
		Store:       st,
		Coordinator: coordinator,
		Redis:       rdb,
		Cache:       tags,
		Log:         log,
		Cfg:         cfg,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http serve", zap.Error(err))
	}
}
