package server

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds the server settings read from a TOML file
type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Dictionary  string `toml:"dictionary"`
	StaticFiles string `toml:"static_files"`
}

// DefaultConfig returns the settings used when no config file is given
func DefaultConfig() Config {
	return Config{
		Port: 8000,
	}
}

// LoadConfig reads a TOML config file on top of the defaults
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(filename, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("error reading config %s: %v", filename, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config keys in %s: %v", filename, undecoded)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("config %s: port %d out of range", filename, cfg.Port)
	}
	return cfg, nil
}
