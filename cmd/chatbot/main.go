package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/solarstories/chatbot/internal/chatbotconfig"
	"github.com/solarstories/chatbot/internal/profile"
	"github.com/solarstories/chatbot/plugin/llm"
	"github.com/solarstories/chatbot/server"
	"github.com/solarstories/chatbot/store"
	"github.com/solarstories/chatbot/store/db"
)

const version = "2.0.0"

var rootCmd = &cobra.Command{
	Use:   "chatbot",
	Short: "A research-study chatbot for guided solar energy conversations",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		instanceProfile := &profile.Profile{
			Mode:       viper.GetString("mode"),
			Addr:       viper.GetString("addr"),
			Port:       viper.GetInt("port"),
			Data:       viper.GetString("data"),
			Driver:     viper.GetString("driver"),
			DSN:        viper.GetString("dsn"),
			ConfigPath: viper.GetString("config"),
			Version:    version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("invalid profile: %w", err)
		}

		logger := newLogger(instanceProfile)
		slog.SetDefault(logger)

		chatbotConfig, err := chatbotconfig.Load(instanceProfile.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load chatbot config: %w", err)
		}

		driver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create database driver: %w", err)
		}
		storeInstance := store.New(driver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		completer, err := llm.NewOpenAICompleter(&llm.Config{
			BaseURL: instanceProfile.LLMBaseURL,
			APIKey:  instanceProfile.LLMAPIKey,
			Model:   instanceProfile.LLMModel,
		})
		if err != nil {
			return fmt.Errorf("failed to create completion client: %w", err)
		}

		s, err := server.New(instanceProfile, storeInstance, chatbotConfig, completer, logger)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("chatbot server starting",
				"version", version,
				"mode", instanceProfile.Mode,
				"addr", instanceProfile.Addr,
				"port", instanceProfile.Port,
				"driver", instanceProfile.Driver,
				"config_version", chatbotConfig.Version,
			)
			return s.Start(gctx)
		})
		g.Go(func() error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sigCh:
				logger.Info("shutdown signal received")
			case <-gctx.Done():
			}
			s.Shutdown(context.Background())
			cancel()
			return nil
		})

		return g.Wait()
	},
}

func newLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "dev" or "prod"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8080, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("config", "", "path to the chatbot configuration JSON")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetDefault("data", ".")
	viper.SetEnvPrefix("chatbot")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
