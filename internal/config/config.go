// Package config loads client and service settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var (
	ErrNoEndpoint      = errors.New("config: endpoint is required")
	ErrInvalidInterval = errors.New("config: intervals must be positive")
	ErrNoAddress       = errors.New("config: address is required")
)

// Client represents the live-search client configuration
type Client struct {
	Endpoint              string `toml:"endpoint"`
	IncludeOwnSuggestions bool   `toml:"include_own_suggestions"`
	PollIntervalMS        int    `toml:"poll_interval_ms"`
	KeepaliveIntervalMS   int    `toml:"keepalive_interval_ms"`
	ReconnectCooldownMS   int    `toml:"reconnect_cooldown_ms"`
	HandshakeTimeoutMS    int    `toml:"handshake_timeout_ms"`
}

// DefaultClient returns the client configuration used when no file is given.
func DefaultClient() Client {
	return Client{
		Endpoint:            "ws://localhost:8080/search",
		PollIntervalMS:      250,
		KeepaliveIntervalMS: 10000,
		ReconnectCooldownMS: 1000,
		HandshakeTimeoutMS:  5000,
	}
}

// LoadClient reads path on top of DefaultClient. Keys missing from the file
// keep their default.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()
	if err := load(path, &cfg); err != nil {
		return Client{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot run with.
func (c Client) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	if c.PollIntervalMS <= 0 || c.KeepaliveIntervalMS <= 0 || c.ReconnectCooldownMS <= 0 || c.HandshakeTimeoutMS <= 0 {
		return ErrInvalidInterval
	}
	return nil
}

func (c Client) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c Client) KeepaliveInterval() time.Duration {
	return time.Duration(c.KeepaliveIntervalMS) * time.Millisecond
}

func (c Client) ReconnectCooldown() time.Duration {
	return time.Duration(c.ReconnectCooldownMS) * time.Millisecond
}

func (c Client) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMS) * time.Millisecond
}

// Server represents the reference search service configuration
type Server struct {
	Address          string `toml:"address"`
	Path             string `toml:"path"`
	DictionaryPath   string `toml:"dictionary_path"` // empty uses the built-in word list
	MaxResults       int    `toml:"max_results"`
	IdleTimeoutMS    int    `toml:"idle_timeout_ms"`
	HeartbeatCheckMS int    `toml:"heartbeat_check_ms"`
}

// DefaultServer returns the service configuration used when no file is given.
func DefaultServer() Server {
	return Server{
		Address:          ":8080",
		Path:             "/search",
		MaxResults:       10,
		IdleTimeoutMS:    30000,
		HeartbeatCheckMS: 15000,
	}
}

// LoadServer reads path on top of DefaultServer.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	if err := load(path, &cfg); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (s Server) Validate() error {
	if s.Address == "" {
		return ErrNoAddress
	}
	if s.MaxResults <= 0 || s.IdleTimeoutMS <= 0 || s.HeartbeatCheckMS <= 0 {
		return ErrInvalidInterval
	}
	return nil
}

func (s Server) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutMS) * time.Millisecond
}

func (s Server) HeartbeatCheck() time.Duration {
	return time.Duration(s.HeartbeatCheckMS) * time.Millisecond
}

func load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}
