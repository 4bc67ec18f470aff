package config

import (
	"fmt"

	"github.com/dmitrijs2005/mediagate/internal/common"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable name, e.g.
// MEDIAGATE_HOMESERVER_URL.
const EnvPrefix = "MEDIAGATE"

// parseEnv overlays cfg with MEDIAGATE_* variables. Unset variables leave
// the current value in place.
func parseEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInvalidConfig, err)
	}
	return nil
}
