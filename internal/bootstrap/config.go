package bootstrap

import "github.com/libra-dev/deploy-engine/internal/config"

// Config is an alias for internal/config.Config rather than a parallel
// struct: the env-tagged fields live in one place in this repo, since
// nothing else needs a bootstrap-specific superset of it.
type Config = config.Config

// LoadConfig reads Config from the process environment.
func LoadConfig() (*Config, error) {
	return config.Load()
}
