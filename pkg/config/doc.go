// Package config loads env-tagged configuration structs for the daemon.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is loaded once per process (missing file is fine), then
// each struct is parsed from the environment via its field tags.
//
//	var cfg queue.Config
//	config.MustLoad(&cfg)
package config
