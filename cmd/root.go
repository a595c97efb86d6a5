package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-agent"
)

type Config struct {
	Profile    ProfileConfig `mapstructure:"profile"`
	Index      IndexConfig   `mapstructure:"index"`
	AI         AIConfig      `mapstructure:"ai"`
	GitHub     GitHubConfig  `mapstructure:"github"`
	Alert      AlertConfig   `mapstructure:"alert"`
	Query      QueryConfig   `mapstructure:"query"`
	SMTP       SMTPConfig    `mapstructure:"smtp"`
	RunTimeout time.Duration `mapstructure:"run-timeout"`
	LogFile    string        `mapstructure:"log-file"`
}

type ProfileConfig struct {
	Dir string `mapstructure:"dir"`
	Key string `mapstructure:"key"`
}

type IndexConfig struct {
	Dir          string        `mapstructure:"dir"`
	CacheTTL     time.Duration `mapstructure:"cache-ttl"`
	ChunkSize    int           `mapstructure:"chunk-size"`
	ChunkOverlap int           `mapstructure:"chunk-overlap"`
	TopK         int           `mapstructure:"top-k"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string   `mapstructure:"api-key"`
	APIKeyFile     string   `mapstructure:"api-key-file"`
	APIKeyFiles    []string `mapstructure:"api-key-files"`
	Model          string   `mapstructure:"model"`
	EmbeddingModel string   `mapstructure:"embedding-model"`
	MaxRetries     int      `mapstructure:"max-retries"`
	MaxLogLength   int      `mapstructure:"max-log-length"`
}

type GitHubConfig struct {
	Token        string `mapstructure:"token"`
	TokenFile    string `mapstructure:"token-file"`
	UserAgent    string `mapstructure:"user-agent"`
	IncludeForks bool   `mapstructure:"include-forks"`
	Limit        int    `mapstructure:"limit"`
}

type AlertConfig struct {
	Cutoff        float64 `mapstructure:"cutoff"`
	Inclusive     bool    `mapstructure:"inclusive"`
	Recipient     string  `mapstructure:"recipient"`
	Subject       string  `mapstructure:"subject"`
	MaxRetrievals int     `mapstructure:"max-retrievals"`
}

type QueryConfig struct {
	MergeProfileContext bool   `mapstructure:"merge-profile-context"`
	MeetingRecipient    string `mapstructure:"meeting-recipient"`
	MeetingSubject      string `mapstructure:"meeting-subject"`
}

type SMTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	From         string `mapstructure:"from"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-agent answers questions about a candidate resume and public projects with an LLM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"github.token":           "GITHUB_TOKEN",
		"github.token-file":      "GITHUB_TOKEN_FILE",
		"smtp.password-file":     "SMTP_PASSWORD_FILE",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-file", "", "also write json logs to a rotating file")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func setDefaults() {
	viper.SetDefault("profile.dir", "data/profiles")
	viper.SetDefault("profile.key", "default")
	viper.SetDefault("index.dir", "data/indexes")
	viper.SetDefault("index.cache-ttl", 10*time.Minute)
	viper.SetDefault("index.chunk-size", 1000)
	viper.SetDefault("index.chunk-overlap", 200)
	viper.SetDefault("index.top-k", 4)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("alert.cutoff", 9.0)
	viper.SetDefault("alert.max-retrievals", 2)
	viper.SetDefault("github.limit", 30)
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("run-timeout", 2*time.Minute)
}

func initConfig() {
	// The .env file is optional.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	err := viper.ReadInConfig()
	if err == nil {
		return
	}

	// Defaults and environment are enough when there is no config file at all.
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return
	}

	// We can't proceed if the config file parsed with error.
	log.Fatal(err)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
