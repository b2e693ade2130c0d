package config

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	AdminEmail                string        `koanf:"admin_email"`
	CoverMaxWidth             int           `koanf:"cover_max_width"`
	CoversDir                 string        `koanf:"covers_dir"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	Environment               string        `koanf:"environment"`
	Hostname                  string        `koanf:"hostname"`
	JWTSecret                 string        `koanf:"jwt_secret"`
	MailAPIKey                string        `koanf:"mail_api_key"`
	MailFrom                  string        `koanf:"mail_from"`
	OpenLibraryURL            string        `koanf:"open_library_url"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
	UploadDir                 string        `koanf:"upload_dir"`
	WorkerProcesses           int           `koanf:"worker_processes"`
}

const (
	environmentENV   = "ENVIRONMENT"
	configFileENV    = "CONFIG_FILE"
	envPrefix        = "BOOKSTACKS_"
	defaultConfigYML = "./config.yaml"
)

// New builds the config in three layers: environment-specific defaults, an
// optional YAML config file, and BOOKSTACKS_* environment variables. Later
// layers win.
func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		CoverMaxWidth:             600,
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        3,
		Hostname:                  hostname,
		OpenLibraryURL:            "https://openlibrary.org",
		ServerPort:                4545,
		WorkerProcesses:           2,
	}

	cfg.Environment = os.Getenv(environmentENV)
	switch cfg.Environment {
	case "development", "":
		cfg.Environment = "development"
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigYML
	}
	err = k.Load(file.Provider(configFile), yaml.Parser())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "failed to load config file: %s", configFile)
	}

	err = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = k.Unmarshal("", cfg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return cfg, nil
}
