package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr                   string        `yaml:"addr"`
	DBUrl                  string        `yaml:"db_url"`
	TokenSecret            string        `yaml:"token_secret"`
	TokenTTL               time.Duration `yaml:"token_ttl"`
	PublicBaseURL          string        `yaml:"public_base_url"`
	DefaultWebhookURL      string        `yaml:"default_webhook_url"`
	FilesWebhookURL        string        `yaml:"files_webhook_url"`
	PollInterval           time.Duration `yaml:"poll_interval"`
	PollMaxAttempts        int           `yaml:"poll_max_attempts"`
	RequireRegisteredEmail bool          `yaml:"require_registered_email"`
	Debug                  bool          `yaml:"debug"`
}

func ParseFlags() (cfg Config, err error) {
	// .env values become plain environment variables, used as flag defaults
	godotenv.Load()

	var host string
	flag.StringVar(&host, "host", envOr("FS_HOST", "0.0.0.0"), "listen host name")
	var port uint
	flag.UintVar(&port, "port", envOrUint("FS_PORT", 8080), "listen port number")
	flag.StringVar(&cfg.DBUrl, "db-url", envOr("FS_DB_URL", "formstudio.sqlite"), "path to SQLite3 DB file")
	flag.StringVar(&cfg.TokenSecret, "token-secret", envOr("FS_TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", envOrUint("FS_TOKEN_TTL", 3600), "token TTL in seconds")
	flag.StringVar(&cfg.PublicBaseURL, "public-base-url", envOr("FS_PUBLIC_BASE_URL", ""), "base URL for share links and embed snippets")
	flag.StringVar(&cfg.DefaultWebhookURL, "webhook-url", envOr("FS_WEBHOOK_URL", ""), "default workflow webhook URL for forms without one")
	flag.StringVar(&cfg.FilesWebhookURL, "files-webhook-url", envOr("FS_FILES_WEBHOOK_URL", ""), "workflow webhook URL for uploaded files")
	var pollSecs uint
	flag.UintVar(&pollSecs, "poll-interval", 3, "report poll cadence in seconds")
	flag.IntVar(&cfg.PollMaxAttempts, "poll-max-attempts", 40, "report poll attempt ceiling")
	flag.BoolVar(&cfg.RequireRegisteredEmail, "require-registered-email", true, "gate public forms on participant registration")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	var file string
	flag.StringVar(&file, "config", "", "optional YAML config file")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.PollInterval = time.Duration(pollSecs) * time.Second

	if file != "" {
		err = cfg.applyFile(file)
		if err != nil {
			return
		}
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = cfg.Url()
	}

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

// applyFile overlays YAML values on fields not set explicitly on the
// command line. Flags win over the file, the file wins over defaults.
func (cfg *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// bools need presence detection: "false" in the file must override a
	// "true" default, so they unmarshal as pointers. Durations come in as
	// strings ("30s", "1h") and parse explicitly.
	fromFile := struct {
		Addr                   string `yaml:"addr"`
		DBUrl                  string `yaml:"db_url"`
		TokenSecret            string `yaml:"token_secret"`
		TokenTTL               string `yaml:"token_ttl"`
		PublicBaseURL          string `yaml:"public_base_url"`
		DefaultWebhookURL      string `yaml:"default_webhook_url"`
		FilesWebhookURL        string `yaml:"files_webhook_url"`
		PollInterval           string `yaml:"poll_interval"`
		PollMaxAttempts        int    `yaml:"poll_max_attempts"`
		RequireRegisteredEmail *bool  `yaml:"require_registered_email"`
		Debug                  *bool  `yaml:"debug"`
	}{}
	err = yaml.Unmarshal(data, &fromFile)
	if err != nil {
		return err
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if fromFile.DBUrl != "" && !set["db-url"] {
		cfg.DBUrl = fromFile.DBUrl
	}
	if fromFile.TokenSecret != "" && !set["token-secret"] {
		cfg.TokenSecret = fromFile.TokenSecret
	}
	if fromFile.TokenTTL != "" && !set["token-ttl"] {
		cfg.TokenTTL, err = time.ParseDuration(fromFile.TokenTTL)
		if err != nil {
			return err
		}
	}
	if fromFile.Addr != "" && !set["host"] && !set["port"] {
		cfg.Addr = fromFile.Addr
	}
	if fromFile.PublicBaseURL != "" && !set["public-base-url"] {
		cfg.PublicBaseURL = fromFile.PublicBaseURL
	}
	if fromFile.DefaultWebhookURL != "" && !set["webhook-url"] {
		cfg.DefaultWebhookURL = fromFile.DefaultWebhookURL
	}
	if fromFile.FilesWebhookURL != "" && !set["files-webhook-url"] {
		cfg.FilesWebhookURL = fromFile.FilesWebhookURL
	}
	if fromFile.PollInterval != "" && !set["poll-interval"] {
		cfg.PollInterval, err = time.ParseDuration(fromFile.PollInterval)
		if err != nil {
			return err
		}
	}
	if fromFile.PollMaxAttempts != 0 && !set["poll-max-attempts"] {
		cfg.PollMaxAttempts = fromFile.PollMaxAttempts
	}
	if fromFile.RequireRegisteredEmail != nil && !set["require-registered-email"] {
		cfg.RequireRegisteredEmail = *fromFile.RequireRegisteredEmail
	}
	if fromFile.Debug != nil && !set["debug"] {
		cfg.Debug = *fromFile.Debug
	}

	return nil
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrUint(key string, fallback uint) uint {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err == nil {
			return uint(n)
		}
	}
	return fallback
}
