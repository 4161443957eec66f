package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Endpoint      string        `env:"INTENTDECK_ENDPOINT" env-default:"https://speech-backend-5rmy.onrender.com/predict-intent/"`
	Format        string        `env:"INTENTDECK_FORMAT" env-default:"wav"`
	Countdown     int           `env:"INTENTDECK_COUNTDOWN" env-default:"3"`
	Tick          time.Duration `env:"INTENTDECK_TICK" env-default:"1s"`
	AnalyzeDelay  time.Duration `env:"INTENTDECK_ANALYZE_DELAY" env-default:"1s"`
	Device        string        `env:"INTENTDECK_DEVICE"`
	Mute          bool          `env:"INTENTDECK_MUTE"`
	UploadLimitMB int           `env:"INTENTDECK_UPLOAD_LIMIT_MB" env-default:"10"`
}

// UploadLimit is the advisory upload ceiling in bytes.
func (c *Config) UploadLimit() int64 {
	return int64(c.UploadLimitMB) << 20
}

func (c *Config) Validate() error {
	switch c.Format {
	case "wav", "flac":
	default:
		return fmt.Errorf("unsupported format %q (want wav or flac)", c.Format)
	}
	if c.Countdown < 1 {
		return fmt.Errorf("countdown must be at least 1, got %d", c.Countdown)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.AnalyzeDelay < 0 {
		return fmt.Errorf("analyze delay must not be negative, got %s", c.AnalyzeDelay)
	}
	return nil
}

// Load reads envFile when it exists (variables already set win) and then
// the process environment.
func Load(envFile string) (*Config, error) {
	loadDotenv(envFile)
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Server struct {
	Port           int      `env:"PORT" env-default:"8000"`
	UploadDir      string   `env:"INTENTD_UPLOAD_DIR"`
	AllowedOrigins []string `env:"INTENTD_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	MaxUploadMB    int      `env:"INTENTD_MAX_UPLOAD_MB" env-default:"25"`
}

func (s *Server) Addr() string { return fmt.Sprintf(":%d", s.Port) }

func LoadServer(envFile string) (*Server, error) {
	loadDotenv(envFile)
	var cfg Server
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}

func MustLoadServer(envFile string) *Server {
	cfg, err := LoadServer(envFile)
	if err != nil {
		panic("failed to read environment variables: " + err.Error())
	}
	return cfg
}

func loadDotenv(path string) {
	if path == "" {
		return
	}
	// a missing file is the normal case
	_ = godotenv.Load(path)
}
