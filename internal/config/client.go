package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/fungiquest/internal/apierr"
)

// Client is the learner app's configuration. Environment variables override
// the file.
type Client struct {
	BackendURL    string `yaml:"backend_url"`
	BackendKey    string `yaml:"backend_key"`
	StateDir      string `yaml:"state_dir"`
	ServerGrading bool   `yaml:"server_grading"`
	LogFile       string `yaml:"log_file"`
	Mode          string `yaml:"mode"`
}

// DefaultClientPath is $XDG_CONFIG_HOME/fungiquest/config.yaml or the
// platform equivalent.
func DefaultClientPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fungiquest", "config.yaml")
}

// LoadClient reads path (a missing file is fine), applies the environment
// and validates. A missing backend URL or key is a configuration error.
func LoadClient(path string) (Client, error) {
	var c Client
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return c, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &c); err != nil {
				return c, apierr.Config(fmt.Sprintf("parse %s: %v", path, err))
			}
		}
	}
	c.applyEnv()
	return c, c.Validate()
}

func (c *Client) applyEnv() {
	if v := os.Getenv("FUNGIQUEST_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv("FUNGIQUEST_BACKEND_KEY"); v != "" {
		c.BackendKey = v
	}
	if v := os.Getenv("FUNGIQUEST_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("FUNGIQUEST_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	c.ServerGrading = envBool("FUNGIQUEST_SERVER_GRADING", c.ServerGrading)
	if c.Mode == "" {
		c.Mode = envOr("MODE", "development")
	}
}

func (c Client) Validate() error {
	if c.BackendURL == "" {
		return apierr.Config("FUNGIQUEST_BACKEND_URL is not set")
	}
	if c.BackendKey == "" {
		return apierr.Config("FUNGIQUEST_BACKEND_KEY is not set")
	}
	return nil
}

// LocalDBPath is the device store file inside StateDir, "" when StateDir is
// unset and the default location should be used.
func (c Client) LocalDBPath() string {
	if c.StateDir == "" {
		return ""
	}
	return filepath.Join(c.StateDir, "local.db")
}
