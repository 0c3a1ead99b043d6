// Package config loads the settings used by the command line tools from the environment
// (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/joho/godotenv"
	"github.com/sfomuseum/go-arcgis-layers/operations/stage"
	"go-simpler.org/env"
)

// The URI scheme of content stores that require ArcGIS credentials.
const ARCGIS_SCHEME string = "arcgis"

type Config struct {
	ContentURI  string `env:"ARCGIS_CONTENT_URI" default:"arcgis://www.arcgis.com"`
	Username    string `env:"ARCGIS_USERNAME"`
	Token       string `env:"ARCGIS_TOKEN"`
	StagingURI  string `env:"ARCGIS_STAGING_URI"`
	Title       string `env:"ARCGIS_DEFAULT_TITLE"`
	Tag         string `env:"ARCGIS_DEFAULT_TAG"`
	UpdateTitle string `env:"ARCGIS_UPDATE_TITLE"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`
}

// Load reads Config from the environment, after applying any variables defined in a .env file
// in the current working directory.
func Load() (*Config, error) {

	err := godotenv.Load()

	if err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config

	err = env.Load(&cfg, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to load environment variables, %w", err)
	}

	err = validate(&cfg)

	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ContentStoreURI returns ContentURI with the username and token assigned to its query
// parameters, if it is an "arcgis://" URI and they are not already present.
func (cfg *Config) ContentStoreURI() (string, error) {

	u, err := url.Parse(cfg.ContentURI)

	if err != nil {
		return "", fmt.Errorf("Failed to parse ARCGIS_CONTENT_URI, %w", err)
	}

	if u.Scheme != ARCGIS_SCHEME {
		return cfg.ContentURI, nil
	}

	q := u.Query()

	if !q.Has("username") && cfg.Username != "" {
		q.Set("username", cfg.Username)
	}

	if !q.Has("token") && cfg.Token != "" {
		q.Set("token", cfg.Token)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Defaults returns the item title, tag and update title to use, falling back to stage.DefaultDefaults
// for any that are not set.
func (cfg *Config) Defaults() *stage.Defaults {

	d := stage.DefaultDefaults()

	if cfg.Title != "" {
		d.Title = cfg.Title
	}

	if cfg.Tag != "" {
		d.Tag = cfg.Tag
	}

	if cfg.UpdateTitle != "" {
		d.UpdateTitle = cfg.UpdateTitle
	}

	return d
}

func validate(cfg *Config) error {

	if cfg.ContentURI == "" {
		return errors.New("ARCGIS_CONTENT_URI is required")
	}

	u, err := url.Parse(cfg.ContentURI)

	if err != nil {
		return fmt.Errorf("ARCGIS_CONTENT_URI is not a valid URI, %w", err)
	}

	if u.Scheme != ARCGIS_SCHEME {
		return nil
	}

	q := u.Query()

	required := map[string]string{
		"ARCGIS_USERNAME": cfg.Username,
		"ARCGIS_TOKEN":    cfg.Token,
	}

	params := map[string]string{
		"ARCGIS_USERNAME": "username",
		"ARCGIS_TOKEN":    "token",
	}

	for name, value := range required {

		if value == "" && q.Get(params[name]) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	return nil
}
