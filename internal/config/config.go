package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env              string     `yaml:"env" env:"ENV" env-default:"prod"`
	HTTPServer       HTTPServer `yaml:"http_server"`
	Session          Session    `yaml:"session"`
	Redis            Redis      `yaml:"redis"`
	IntegrationsPath string     `yaml:"integrations_path" env:"INTEGRATIONS_PATH"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"127.0.0.1:5000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"120s"`
}

type Session struct {
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"SESSION_REQUEST_TIMEOUT" env-default:"20s"`
	RetryBackoff    time.Duration `yaml:"retry_backoff" env:"SESSION_RETRY_BACKOFF" env-default:"400ms"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout" env:"SESSION_PROBE_TIMEOUT" env-default:"5s"`
	TDLibVerbosity  int32         `yaml:"tdlib_verbosity" env:"TDLIB_VERBOSITY" env-default:"1"`
	DefaultPlatform string        `yaml:"default_platform" env:"DEFAULT_PLATFORM" env-default:"android"`
}

// Redis: аренда артефактов; пустой URL отключает аренду
type Redis struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	LeaseTTL time.Duration `yaml:"lease_ttl" env:"REDIS_LEASE_TTL" env-default:"30s"`
}

// Load читает конфиг из файла (если задан) и переменных окружения
func Load() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	path, port, err := fetchFlags(fs, args)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("ошибка загрузки конфига %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения окружения: %w", err)
	}

	if port != 0 {
		host, _, err := net.SplitHostPort(cfg.HTTPServer.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid http_server.address %q: %w", cfg.HTTPServer.Address, err)
		}
		cfg.HTTPServer.Address = net.JoinHostPort(host, strconv.Itoa(port))
	}

	return &cfg, nil
}

// fetchFlags fetches config path and port override from command line flags.
// Config path priority: flag > env > default (empty string).
func fetchFlags(fs *flag.FlagSet, args []string) (string, int, error) {
	var (
		res  string
		port int
	)

	fs.StringVar(&res, "config", "", "path to config file")
	fs.IntVar(&port, "port", 0, "port to listen on")
	if err := fs.Parse(args); err != nil {
		return "", 0, err
	}

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res, port, nil
}
