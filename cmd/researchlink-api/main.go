package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iamtanim0195/researchlink/internal/auth"
	"github.com/iamtanim0195/researchlink/internal/config"
	"github.com/iamtanim0195/researchlink/internal/database"
	"github.com/iamtanim0195/researchlink/internal/directory"
	"github.com/iamtanim0195/researchlink/internal/events"
	"github.com/iamtanim0195/researchlink/internal/logging"
	"github.com/iamtanim0195/researchlink/internal/profiles"
	"github.com/iamtanim0195/researchlink/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "researchlink-api",
		Short: "ResearchLink matchmaking backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session token signing secret (overrides env)")
	cmd.PersistentFlags().String("kafka-broker", defaults.GetString("kafka.broker"), "Kafka broker for profile events (empty disables eventing)")
	cmd.PersistentFlags().String("kafka-topic", defaults.GetString("kafka.topic"), "Kafka topic for profile events")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "kafka.broker", "kafka-broker")
	bindFlag(cmd, "kafka.topic", "kafka-topic")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	credentialStore, err := auth.NewCredentialStore(auth.CredentialStoreConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	tokenIssuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "researchlink-auth",
		Audience:      "researchlink-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	profileRepository, err := profiles.NewRepository(profiles.RepositoryConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var publisher profiles.EventPublisher
	if appConfig.EventsEnabled() {
		producer, err := events.NewProducer(events.ProducerConfig{
			Broker: appConfig.KafkaBroker,
			Topic:  appConfig.KafkaTopic,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		defer producer.Close() //nolint:errcheck
		publisher = producer
	}

	registrationService, err := profiles.NewRegistrationService(profiles.RegistrationConfig{
		Credentials: credentialStore,
		Repository:  profileRepository,
		Events:      publisher,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	directoryService, err := directory.NewService(directory.ServiceConfig{
		Profiles: profileRepository,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Credentials:  credentialStore,
		Tokens:       tokenIssuer,
		Registration: registrationService,
		Profiles:     profileRepository,
		Directory:    directoryService,
		Sessions:     server.NewSessionBroadcaster(),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
