package config

import (
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds process level settings. The editable bridge settings live in the
// YAML document pointed to by ConfigPath.
type Env struct {
	ConfigPath   string `env:"DISCORDLINK_CONFIG" envDefault:"data/discordlink.yaml"`
	DatabasePath string `env:"DISCORDLINK_DB" envDefault:"data/discordlink.db"`
	BotToken     string `env:"DISCORD_BOT_TOKEN"`
	GameAddr     string `env:"DISCORDLINK_GAME_ADDR" envDefault:"127.0.0.1:8080"`
	GameToken    string `env:"DISCORDLINK_GAME_TOKEN"`
	ChatlogDir   string `env:"DISCORDLINK_CHATLOG_DIR"`
}

// LoadEnv reads an optional .env file and decodes the environment.
func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	cfg := &Env{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.ChatlogDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Printf("config: working directory unavailable: %v", err)
			wd = "."
		}
		cfg.ChatlogDir = wd
	}

	return cfg, nil
}
