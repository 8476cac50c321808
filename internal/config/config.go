// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

// Server configures the room server.
type Server struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"SHOWROOM_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SHOWROOM_LOG_FORMAT" envDefault:"json"`
	// BaseURL is the externally visible address, used only for logging.
	BaseURL      string        `env:"SHOWROOM_BASE_URL"`
	SessionTTL   time.Duration `env:"SHOWROOM_SESSION_TTL" envDefault:"30m"`
	RoomCapacity int           `env:"SHOWROOM_ROOM_CAPACITY" envDefault:"2"`
}

// Addr is the listen address for Port.
func (s Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// PublicURL is BaseURL, or a localhost URL for Port when unset.
func (s Server) PublicURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// AnonymousUser is the default viewer identity.
const AnonymousUser = "anonymous"

// Viewer configures the headless room viewer.
type Viewer struct {
	ServerURL string `env:"SHOWROOM_URL" envDefault:"http://localhost:8080"`
	RoomID    string `env:"SHOWROOM_ROOM,required"`
	// UserID "anonymous" is made unique per process so default viewers do
	// not collide on one slot.
	UserID         string        `env:"SHOWROOM_USER" envDefault:"anonymous"`
	FrameInterval  time.Duration `env:"SHOWROOM_FRAME_INTERVAL" envDefault:"16ms"`
	RedirectDelay  time.Duration `env:"SHOWROOM_REDIRECT_DELAY" envDefault:"2s"`
	RequestTimeout time.Duration `env:"SHOWROOM_REQUEST_TIMEOUT" envDefault:"10s"`
	RenewInterval  time.Duration `env:"SHOWROOM_RENEW_INTERVAL" envDefault:"5m"`
	LogLevel       string        `env:"SHOWROOM_LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"SHOWROOM_LOG_FORMAT" envDefault:"console"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer parses and validates the server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Server{}, fmt.Errorf("PORT %d out of range", cfg.Port)
	}
	if cfg.RoomCapacity <= 0 {
		return Server{}, fmt.Errorf("SHOWROOM_ROOM_CAPACITY must be positive, got %d", cfg.RoomCapacity)
	}
	if cfg.SessionTTL <= 0 {
		return Server{}, fmt.Errorf("SHOWROOM_SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return cfg, nil
}

// LoadViewer parses and validates the viewer configuration.
func LoadViewer() (Viewer, error) {
	var cfg Viewer
	if err := ParseEnv(&cfg); err != nil {
		return Viewer{}, err
	}
	if cfg.FrameInterval <= 0 {
		return Viewer{}, fmt.Errorf("SHOWROOM_FRAME_INTERVAL must be positive, got %s", cfg.FrameInterval)
	}
	if cfg.RenewInterval <= 0 {
		return Viewer{}, fmt.Errorf("SHOWROOM_RENEW_INTERVAL must be positive, got %s", cfg.RenewInterval)
	}
	if cfg.UserID == AnonymousUser {
		cfg.UserID = AnonymousUser + "-" + uuid.NewString()[:8]
	}
	return cfg, nil
}
