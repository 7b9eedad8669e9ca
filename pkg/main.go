package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	pkg "git.solsynth.dev/hypernet/converse/pkg/internal"
	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"git.solsynth.dev/hypernet/converse/pkg/internal/gateway"
	"git.solsynth.dev/hypernet/converse/pkg/internal/grpc"
	"git.solsynth.dev/hypernet/converse/pkg/internal/http"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func newFanout() gateway.Fanout {
	switch viper.GetString("fanout.driver") {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: viper.GetString("fanout.redis_addr"),
		})
		return gateway.NewRedisFanout(client, viper.GetString("fanout.redis_channel"))
	default:
		return gateway.NewLocalFanout()
	}
}

func main() {
	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("MESSAGING")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("bind", "0.0.0.0:8447")
	viper.SetDefault("grpc_bind", "0.0.0.0:7447")
	viper.SetDefault("gateway.ping_interval", "30s")
	viper.SetDefault("gateway.idle_timeout", "90s")
	viper.SetDefault("gateway.send_buffer", 64)
	viper.SetDefault("fanout.driver", "local")
	viper.SetDefault("fanout.redis_channel", "messaging:fanout")
	viper.SetDefault("notify.kafka_topic", "messaging.notifications")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Gateway
	identity := services.NewJWTIdentity(viper.GetString("security.identity_secret"))
	gw := gateway.New(identity, newFanout(), gateway.Config{
		SendBuffer:   viper.GetInt("gateway.send_buffer"),
		PingInterval: viper.GetDuration("gateway.ping_interval"),
		IdleTimeout:  viper.GetDuration("gateway.idle_timeout"),
	})
	if err := gw.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when subscribing to the fan-out.")
	}

	// Services and collaborators
	service := services.NewService(store.New(database.C), gw)
	if brokers := viper.GetStringSlice("notify.kafka_brokers"); len(brokers) > 0 {
		notifier := services.NewKafkaNotifier(brokers, viper.GetString("notify.kafka_topic"))
		defer notifier.Close()
		service.UseNotifier(notifier)
	} else {
		log.Warn().Msg("No kafka brokers configured, offline notifications are disabled.")
	}
	if len(viper.GetString("storage.endpoint")) > 0 {
		uploader, err := services.NewMinioUploader(services.MinioConfig{
			Endpoint:  viper.GetString("storage.endpoint"),
			AccessKey: viper.GetString("storage.access_key"),
			SecretKey: viper.GetString("storage.secret_key"),
			Bucket:    viper.GetString("storage.bucket"),
			PublicURL: viper.GetString("storage.public_url"),
			UseSSL:    viper.GetBool("storage.use_ssl"),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("An error occurred when connecting to object storage.")
		} else if err := uploader.EnsureBucket(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when preparing the storage bucket.")
		}
		service.UseUploader(uploader)
	} else {
		log.Warn().Msg("No object storage configured, uploads are disabled.")
	}

	// Server
	server := http.NewServer(service, gw, identity)
	go server.Listen()

	grpcServer := grpc.NewGrpc(database.C)
	go func() {
		if err := grpcServer.Listen(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when starting grpc server...")
		}
	}()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	if _, err := quartz.AddFunc("@every 1m", func() { gw.ReapIdle() }); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when scheduling the session reaper.")
	}
	quartz.Start()

	// Messages
	log.Info().Msgf("Messaging v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Messaging v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
	_ = server.Shutdown()
	grpcServer.Stop()
	if err := gw.Stop(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when stopping the gateway...")
	}
}
