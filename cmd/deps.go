package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/ai/gemini"
	"github.com/spigell/resume-agent/internal/github"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/notify"
	"github.com/spigell/resume-agent/internal/profile"
	"github.com/spigell/resume-agent/internal/retrieval"
	"github.com/spigell/resume-agent/internal/secrets"
)

// setup builds the logger and reads the config shared by every command.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), viper.GetString("log-file"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(redacted(*config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func redacted(c Config) Config {
	if c.AI.Gemini != nil {
		g := *c.AI.Gemini
		if g.APIKey != "" {
			g.APIKey = "***"
		}
		c.AI.Gemini = &g
	}
	if c.GitHub.Token != "" {
		c.GitHub.Token = "***"
	}
	if c.SMTP.Password != "" {
		c.SMTP.Password = "***"
	}
	return c
}

func newAI(ctx context.Context, config *Config, log *zap.Logger) (*gemini.Pool, error) {
	provider := strings.ToLower(strings.TrimSpace(config.AI.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider %q", config.AI.Provider)
	}

	geminiConfig := config.AI.Gemini
	if geminiConfig == nil {
		geminiConfig = &GeminiConfig{}
	}

	sources := []secrets.Source{{
		Name:  "gemini api key",
		Value: geminiConfig.APIKey,
		File:  geminiConfig.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	}}
	sources = append(sources, secrets.Files("gemini api key", geminiConfig.APIKeyFiles)...)

	keys, err := secrets.LoadMany("gemini api keys", sources)
	if err != nil {
		return nil, err
	}

	pool, err := gemini.NewPool(ctx, keys, gemini.Options{
		Model:          geminiConfig.Model,
		EmbeddingModel: geminiConfig.EmbeddingModel,
		MaxRetries:     geminiConfig.MaxRetries,
		MaxLogLength:   geminiConfig.MaxLogLength,
	}, log)
	if err != nil {
		return nil, err
	}

	log.Info("ai provider ready",
		zap.String("provider", pool.Provider()),
		zap.String("model", pool.Model()),
		zap.Int("keys", pool.Size()),
	)

	return pool, nil
}

func newIndexStore(config *Config, log *zap.Logger) *retrieval.Store {
	return retrieval.NewStore(config.Index.Dir, config.Index.CacheTTL, log)
}

func newProfileStore(config *Config) *profile.FileStore {
	return profile.NewFileStore(config.Profile.Dir)
}

func newGitHub(config *Config, log *zap.Logger) (*github.Client, error) {
	var token string
	if config.GitHub.Token != "" || config.GitHub.TokenFile != "" {
		var err error
		token, err = secrets.Load(secrets.Source{
			Name:  "github token",
			Value: config.GitHub.Token,
			File:  config.GitHub.TokenFile,
		})
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("github token is not configured, using anonymous requests")
	}

	client := github.New(log, token)
	if config.GitHub.UserAgent != "" {
		client.UserAgent = config.GitHub.UserAgent
	}

	return client, nil
}

func newAnalyzer(config *Config, log *zap.Logger) (*github.Analyzer, error) {
	client, err := newGitHub(config, log)
	if err != nil {
		return nil, err
	}
	return github.NewAnalyzer(client, config.GitHub.IncludeForks, config.GitHub.Limit, log), nil
}

// newNotifier sends mail when SMTP is configured and logs the message
// otherwise.
func newNotifier(config *Config, log *zap.Logger) (notify.Notifier, error) {
	if strings.TrimSpace(config.SMTP.Host) == "" {
		log.Info("smtp is not configured, notifications will be logged only")
		return notify.NewLog(log), nil
	}

	var password string
	if config.SMTP.Password != "" || config.SMTP.PasswordFile != "" {
		var err error
		password, err = secrets.Load(secrets.Source{
			Name:  "smtp password",
			Value: config.SMTP.Password,
			File:  config.SMTP.PasswordFile,
		})
		if err != nil {
			return nil, err
		}
	}

	return notify.NewSMTP(notify.SMTPConfig{
		Host:     config.SMTP.Host,
		Port:     config.SMTP.Port,
		Username: config.SMTP.Username,
		Password: password,
		From:     config.SMTP.From,
	}, log)
}

// withTimeout bounds one run when run-timeout is set.
func withTimeout(config *Config) (context.Context, context.CancelFunc) {
	if config.RunTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), config.RunTimeout)
}
