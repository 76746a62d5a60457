// Package config loads the eval-hub service configuration from the
// environment.
package config

import (
	"fmt"
	"log"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Runtime names accepted by Config.Runtime.
const (
	RuntimeLocal      = "local"
	RuntimeKubernetes = "kubernetes"
)

// Config holds the application configuration. All fields are read from
// environment variables with the EVAL_HUB_ prefix, e.g. ServerAddress
// comes from EVAL_HUB_SERVER_ADDRESS.
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":8080"`
	MCPPort       uint16 `env:"MCP_PORT" envDefault:"0"`

	// DatabaseURL selects the evaluation job store. The sentinel value
	// "memory" keeps jobs in process memory; anything else is treated as
	// a PostgreSQL connection URI.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"memory"`

	// ProvidersDir optionally points at a directory of provider YAML
	// files merged over the builtin catalog.
	ProvidersDir string `env:"PROVIDERS_DIR" envDefault:""`

	// MLflow experiment tracking. An empty tracking URI disables the
	// integration; evaluation responses then carry no experiment URL.
	MLflowTrackingURI string `env:"MLFLOW_TRACKING_URI" envDefault:""`
	MLflowUIURL       string `env:"MLFLOW_UI_URL" envDefault:""`

	// Runtime selects how provider adapters are launched.
	Runtime      string `env:"RUNTIME" envDefault:"local"`
	JobNamespace string `env:"JOB_NAMESPACE" envDefault:"eval-hub"`

	// CallbackBaseURL is the address adapters post status events back to.
	// Defaults to the server address on localhost when unset.
	CallbackBaseURL string `env:"CALLBACK_BASE_URL" envDefault:""`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Verbose         bool          `env:"VERBOSE" envDefault:"false"`
	Version         string        `env:"VERSION" envDefault:"dev"`
}

// NewConfig loads the configuration from the environment, reading a .env
// file first when one exists.
func NewConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}
	var cfg Config
	err = env.ParseWithOptions(&cfg, env.Options{
		Prefix: "EVAL_HUB_",
	})
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return &cfg
}

// Validate checks the enum-valued fields.
func Validate(cfg *Config) error {
	switch cfg.Runtime {
	case RuntimeLocal, RuntimeKubernetes:
	default:
		return fmt.Errorf("unsupported runtime %q (expected %q or %q)", cfg.Runtime, RuntimeLocal, RuntimeKubernetes)
	}
	if cfg.ServerAddress == "" {
		return fmt.Errorf("server address must not be empty")
	}
	return nil
}
