package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where the chatbot stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the server
	Version string
	// ConfigPath is the path to the chatbot configuration JSON.
	// Empty means the embedded default configuration is used.
	ConfigPath string
	// Secret signs the session-state tokens handed to the presentation layer
	Secret string

	// Completion service configuration
	LLMAPIKey  string // CHATBOT_LLM_API_KEY
	LLMBaseURL string // CHATBOT_LLM_BASE_URL (default: https://api.openai.com/v1)
	LLMModel   string // CHATBOT_LLM_MODEL (default: gpt-4o-mini)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the completion-service and secret settings from environment
// variables. Address and storage settings come from flags in cmd.
func (p *Profile) FromEnv() {
	p.LLMAPIKey = os.Getenv("CHATBOT_LLM_API_KEY")
	p.LLMBaseURL = getEnvOrDefault("CHATBOT_LLM_BASE_URL", "https://api.openai.com/v1")
	p.LLMModel = getEnvOrDefault("CHATBOT_LLM_MODEL", "gpt-4o-mini")
	if p.Secret == "" {
		p.Secret = os.Getenv("CHATBOT_SESSION_SECRET")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q, expected sqlite or postgres", p.Driver)
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("chatbot_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("a postgres DSN is required when the postgres driver is selected")
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("CHATBOT_SESSION_SECRET is required in prod mode")
		}
		p.Secret = "chatbot-dev-secret"
	}

	return nil
}
