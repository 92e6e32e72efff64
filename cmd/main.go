package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"rescuegrid/internal/api"
	"rescuegrid/internal/auth"
	"rescuegrid/internal/blog"
	"rescuegrid/internal/config"
	"rescuegrid/internal/geocell"
	"rescuegrid/internal/realtime"
	"rescuegrid/internal/rescue"
	"rescuegrid/internal/store"
	"rescuegrid/internal/subscriber"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conf, err := config.New()
	if err != nil {
		return err
	}

	var loggerOpts slog.HandlerOptions
	if conf.Env == config.EnvDev {
		loggerOpts = slog.HandlerOptions{Level: slog.LevelDebug}
	}

	jsonHandler := slog.NewJSONHandler(os.Stdout, &loggerOpts)
	logger := slog.New(jsonHandler)

	db, err := store.NewPostgres(conf.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(conf.RedisHost, conf.RedisPort)})

	codec := geocell.NewCodec(conf.GeohashPrecision)
	registry := realtime.NewRegistry(codec, logger)
	dispatcher := realtime.NewDispatcher(codec, registry, logger)
	logger.Info("cell fan-out configured", "precision", codec.Precision())

	var mailer auth.Mailer
	if conf.SMTPUser != "" && conf.SMTPPass != "" {
		mailer = auth.NewSMTPMailer(conf.SMTPHost, conf.SMTPPort, conf.SMTPUser, conf.SMTPPass)
	} else {
		logger.Warn("EMAIL_USER or EMAIL_PASS not set, otp codes go to the log")
		mailer = auth.NewLogMailer(logger)
	}

	jwtManager := auth.NewJWTManager(conf.JWTSecret, conf.JWTExpiresIn)
	otpService := auth.NewOTPService(auth.NewRedisOTPStore(redisClient, conf.OTPTTL), mailer, logger)
	gate := auth.NewGate(jwtManager, db)

	reports := rescue.NewService(db, dispatcher, conf.ExpiryWindow, logger)
	blogs := blog.NewService(db, dispatcher, logger)

	sub := subscriber.NewSubscriber(logger, redisClient, conf.RedisEventsChannel, dispatcher)
	go func() {
		if err := sub.Start(ctx); err != nil {
			logger.Error("subscriber stopped with error", "error", err)
		}
	}()

	server := api.NewServer(conf, logger, gate, jwtManager, otpService, db, reports, blogs, registry, db)
	if err := server.Start(ctx); err != nil {
		return err
	}

	return nil
}
