package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "resume-scorer"
	envPrefix = "RESUME_SCORER"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	RateLimit RateLimitConfig `mapstructure:"rate-limit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	MaxUploadBytes  int64         `mapstructure:"max-upload-bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed-origins"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	BaseURL    string        `mapstructure:"base-url"`
	MaxRetries int           `mapstructure:"max-retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Dimensions int           `mapstructure:"dimensions"`
}

type ScoringConfig struct {
	MinInputLength          int      `mapstructure:"min-input-length"`
	MinExtractedLength      int      `mapstructure:"min-extracted-length"`
	DisabledRecommendations []string `mapstructure:"disabled-recommendations"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests-per-minute"`
	Burst             int  `mapstructure:"burst"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-scorer rates how well a resume matches a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-scorer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read-timeout", 30*time.Second)
	v.SetDefault("server.write-timeout", 60*time.Second)
	v.SetDefault("server.shutdown-timeout", 15*time.Second)
	v.SetDefault("server.max-upload-bytes", 10<<20)
	v.SetDefault("server.allowed-origins", []string{"*"})

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api-key", "")
	v.SetDefault("embedding.api-key-file", "")
	v.SetDefault("embedding.base-url", "")
	v.SetDefault("embedding.max-retries", 3)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.dimensions", 0)

	v.SetDefault("scoring.min-input-length", 50)
	v.SetDefault("scoring.min-extracted-length", 50)
	v.SetDefault("scoring.disabled-recommendations", []string{})

	v.SetDefault("rate-limit.enabled", true)
	v.SetDefault("rate-limit.requests-per-minute", 60)
	v.SetDefault("rate-limit.burst", 10)
}

// bindEnv maps keys like server.max-upload-bytes to RESUME_SCORER_SERVER_MAX_UPLOAD_BYTES.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless it was requested explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &config, nil
}
