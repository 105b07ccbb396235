package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig configures the standalone room server.
type ServerConfig struct {
	Addr           string        `env:"JHITSTER_ADDR"            envDefault:":8080"`
	GameConfigPath string        `env:"JHITSTER_GAME_CONFIG"     envDefault:"data/game_config.json"`
	PacksDir       string        `env:"JHITSTER_PACKS_DIR"       envDefault:"data/packs"`
	LogLevel       string        `env:"JHITSTER_LOG_LEVEL"       envDefault:"info"`
	LogPretty      bool          `env:"JHITSTER_LOG_PRETTY"      envDefault:"false"`
	PreviewLookup  bool          `env:"JHITSTER_PREVIEW_LOOKUP"  envDefault:"true"`
	PreviewURL     string        `env:"JHITSTER_PREVIEW_URL"     envDefault:"https://itunes.apple.com/search"`
	PreviewTimeout time.Duration `env:"JHITSTER_PREVIEW_TIMEOUT" envDefault:"5s"`
	RoomIdleTTL    time.Duration `env:"JHITSTER_ROOM_IDLE_TTL"   envDefault:"30m"`
}

// LoadServerConfig reads ServerConfig from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var c ServerConfig
	if err := env.Parse(&c); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}
