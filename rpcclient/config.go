package rpcclient

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingRelayURL   = errors.New("relay url is not set")
	ErrMissingSigningKey = errors.New("signing key is not set")
)

const (
	defaultSigningKeyEnv  = "SIGNING_KEY"
	defaultRequestTimeout = 10 * time.Second
)

type Config struct {
	RelayURL string `yaml:"relay_url"`
	// SimulationURL defaults to RelayURL
	SimulationURL string `yaml:"simulation_url"`
	// SigningKeyEnv names the environment variable holding the hex encoded auth key
	SigningKeyEnv string `yaml:"signing_key_env"`
	// SimRateLimit is in calls per second, zero disables the limit
	SimRateLimit   float64       `yaml:"sim_rate_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Builders are used when a request does not name any
	Builders []string `yaml:"builders"`
}

// LoadConfig parses a client config from a yaml file
func LoadConfig(file string) (Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}

	if config.RelayURL == "" {
		return Config{}, ErrMissingRelayURL
	}
	if config.SimulationURL == "" {
		config.SimulationURL = config.RelayURL
	}
	if config.SigningKeyEnv == "" {
		config.SigningKeyEnv = defaultSigningKeyEnv
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	return config, nil
}

// SigningKey reads the auth key from the configured environment variable
func (c Config) SigningKey() (*ecdsa.PrivateKey, error) {
	raw := strings.TrimPrefix(os.Getenv(c.SigningKeyEnv), "0x")
	if raw == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingSigningKey, c.SigningKeyEnv)
	}
	return crypto.HexToECDSA(raw)
}
