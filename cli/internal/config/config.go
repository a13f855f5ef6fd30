// Package config loads CLI settings from the usual places: a .specql.yaml
// file (working directory, home, ~/.config/specql), SPECQL_-prefixed
// environment variables and a local .env file. Precedence follows viper:
// explicit flags beat environment, environment beats file.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem the CLI reads and writes through. Tests swap in
// an afero.MemMapFs.
var AppFs = afero.NewOsFs()

// Config holds the CLI configuration.
type Config struct {
	// Provider is the default database provider for compile and ping.
	Provider string
	// DSN is the default connection string for ping.
	DSN string
	// Output is the default path compile writes SQL to when -o is given
	// without a value.
	Output string
	// Debug turns on debug logging for every command.
	Debug bool
}

// Load resolves configuration from config file, environment and .env files.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(".specql")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "specql"))

	v.SetEnvPrefix("SPECQL")
	v.AutomaticEnv()

	v.SetDefault("provider", "sqlserver")
	v.SetDefault("output", "")
	v.SetDefault("debug", false)

	// A missing config file is fine; flags and environment still apply.
	_ = v.ReadInConfig()

	// .env loads into the process environment so SPECQL_ and DATABASE_URL
	// resolve the same way they would in a shell. .env.local wins.
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		Provider: v.GetString("provider"),
		DSN:      v.GetString("dsn"),
		Output:   v.GetString("output"),
		Debug:    v.GetBool("debug"),
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// Save writes the configuration as .specql.yaml in the working directory.
func Save(cfg *Config) (string, error) {
	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	v.Set("provider", cfg.Provider)
	v.Set("dsn", cfg.DSN)
	v.Set("debug", cfg.Debug)
	if cfg.Output != "" {
		v.Set("output", cfg.Output)
	}

	// Viper resolves its search paths to absolute paths, so the write has
	// to be absolute too for the round trip to hit the same file.
	path := ".specql.yaml"
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if err := v.WriteConfigAs(abs); err != nil {
		return "", err
	}
	return path, nil
}
