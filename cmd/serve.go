package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/extract"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/scoring"
	"github.com/spigell/resume-scorer/internal/server"
	"github.com/spigell/resume-scorer/internal/server/ratelimit"
)

const (
	selfTestResume = "Software engineer with Python experience"
	selfTestJob    = "Looking for a Python software developer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP scoring API",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Bool("self-test", false, "score a fixed resume and job pair at startup and log the result")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func serve(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-scorer", zap.String("version", version))
	logger.Debug("starting with config", zap.Any("config", redacted(config)))

	scorer, analyzer, err := newScoring(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the scorer", zap.Error(err))
	}

	if selfTest, _ := cmd.Flags().GetBool("self-test"); selfTest {
		runSelfTest(ctx, scorer, logger)
	}

	srv, err := server.New(serverConfig(config), server.Deps{
		Scorer:    scorer,
		Analyzer:  analyzer,
		Extractor: extract.New(logger),
	}, logger)
	if err != nil {
		logger.Fatal("creating the server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func serverConfig(config *Config) server.Config {
	return server.Config{
		Port:               config.Server.Port,
		ReadTimeout:        config.Server.ReadTimeout,
		WriteTimeout:       config.Server.WriteTimeout,
		ShutdownTimeout:    config.Server.ShutdownTimeout,
		MaxUploadBytes:     config.Server.MaxUploadBytes,
		AllowedOrigins:     config.Server.AllowedOrigins,
		MinInputLength:     config.Scoring.MinInputLength,
		MinExtractedLength: config.Scoring.MinExtractedLength,
		RateLimit: ratelimit.Config{
			Enabled:           config.RateLimit.Enabled,
			RequestsPerMinute: config.RateLimit.RequestsPerMinute,
			Burst:             config.RateLimit.Burst,
		},
	}
}

// runSelfTest scores a known pair. Failures are logged and never abort startup.
func runSelfTest(ctx context.Context, scorer *scoring.Scorer, logger *zap.Logger) bool {
	score, err := scorer.Score(ctx, selfTestResume, selfTestJob)
	if err != nil {
		logger.Warn("self-test failed", zap.Error(err))
		return false
	}
	if score <= 0 {
		logger.Warn("self-test failed", zap.String("reason", "score is 0"))
		return false
	}
	logger.Info("self-test passed", zap.Float64("score", score))
	return true
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) Config {
	out := *config
	if out.Embedding.APIKey != "" {
		out.Embedding.APIKey = "***"
	}
	return out
}
