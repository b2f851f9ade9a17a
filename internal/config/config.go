// zenodo-publish/internal/config/config.go
package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL    = "https://zenodo.org/api"
	DefaultSandboxURL = "https://sandbox.zenodo.org/api"
	DefaultCommunity  = "wikipathways"
)

type Config struct {
	Zenodo  ZenodoConfig
	HTTP    HTTPConfig
	Storage StorageConfig
	Drive   DriveConfig
	App     AppConfig
}

type ZenodoConfig struct {
	BaseURL    string
	SandboxURL string
	Community  string
	PageSize   int
	Token      string
}

type HTTPConfig struct {
	TimeoutSeconds int
	RateLimit      float64
	RateBurst      int
}

// StorageConfig holds the S3-compatible endpoint used for s3:// payloads.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
}

type AppConfig struct {
	LogLevel    string
	DownloadDir string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = load()
	})

	return instance
}

func load() *Config {
	v := viper.New()

	v.SetDefault("ZENODO_BASE_URL", DefaultBaseURL)
	v.SetDefault("ZENODO_SANDBOX_URL", DefaultSandboxURL)
	v.SetDefault("ZENODO_COMMUNITY", DefaultCommunity)
	v.SetDefault("ZENODO_PAGE_SIZE", 100)
	v.SetDefault("ZENODO_TOKEN", "")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 0)
	v.SetDefault("HTTP_RATE_LIMIT", 1.0)
	v.SetDefault("HTTP_RATE_BURST", 5)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DOWNLOAD_DIR", os.TempDir())

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Zenodo: ZenodoConfig{
			BaseURL:    strings.TrimRight(v.GetString("ZENODO_BASE_URL"), "/"),
			SandboxURL: strings.TrimRight(v.GetString("ZENODO_SANDBOX_URL"), "/"),
			Community:  v.GetString("ZENODO_COMMUNITY"),
			PageSize:   v.GetInt("ZENODO_PAGE_SIZE"),
			Token:      v.GetString("ZENODO_TOKEN"),
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: v.GetInt("HTTP_TIMEOUT_SECONDS"),
			RateLimit:      v.GetFloat64("HTTP_RATE_LIMIT"),
			RateBurst:      v.GetInt("HTTP_RATE_BURST"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Region:    v.GetString("S3_REGION"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
		},
		App: AppConfig{
			LogLevel:    v.GetString("LOG_LEVEL"),
			DownloadDir: v.GetString("DOWNLOAD_DIR"),
		},
	}
}

// APIBase returns the deposition API root, switching to the sandbox host when asked.
func (c ZenodoConfig) APIBase(sandbox bool) string {
	if sandbox {
		return c.SandboxURL
	}
	return c.BaseURL
}

// Timeout returns the per-request HTTP timeout.
func (c HTTPConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
