package source

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fillbot/gofill/pkg/config"
	"github.com/fillbot/gofill/pkg/secretstore"
)

var srcLog = logrus.WithField("component", "source")

// FromConfig builds the configured fill source. The returned closer
// releases underlying handles and is never nil.
func FromConfig(cfg *config.Config) (Source, func() error, error) {
	switch cfg.Source.Kind {
	case config.SourceHTTP:
		src, err := NewHTTPFromConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		return src, func() error { return nil }, nil
	case config.SourceSQLite:
		db, err := OpenSQLite(cfg.Source.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind: %s", cfg.Source.Kind)
	}
}

// NewHTTPFromConfig builds the HTTP source regardless of the configured
// kind. fill-recorder always reads from the remote API even when queries
// are served from sqlite.
func NewHTTPFromConfig(cfg *config.Config) (*HTTPSource, error) {
	if cfg.Source.BaseURL == "" {
		return nil, fmt.Errorf("source base_url is required for the http source")
	}
	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	return NewHTTPSource(HTTPConfig{
		BaseURL: cfg.Source.BaseURL,
		APIKey:  apiKey,
		Timeout: time.Duration(cfg.Source.TimeoutSeconds) * time.Second,
		Retries: cfg.Source.Retries,
	}), nil
}

// resolveAPIKey returns the fills API credential. Explicit config and
// environment values (already merged into cfg) win; the secret store is
// the fallback. No key at all is legal, the API may be open.
func resolveAPIKey(cfg *config.Config) (string, error) {
	if cfg.Source.APIKey != "" {
		return cfg.Source.APIKey, nil
	}
	if cfg.Secrets.DBPath == "" {
		return "", nil
	}

	keyBytes, err := secretstore.ParseKey(cfg.Secrets.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("parse secrets encryption key: %w", err)
	}
	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.Secrets.DBPath,
		EncryptionKey: keyBytes,
		ReadOnly:      true,
	})
	if err != nil {
		return "", fmt.Errorf("open secret store: %w", err)
	}
	defer ss.Close()

	val, found, err := ss.GetString(secretstore.WellKnownAPIKey)
	if err != nil {
		return "", err
	}
	if !found {
		srcLog.Debugf("secret store %s holds no %s entry", cfg.Secrets.DBPath, secretstore.WellKnownAPIKey)
		return "", nil
	}
	return val, nil
}
