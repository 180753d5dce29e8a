package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPATIALCMS_"

// envMapping maps environment variables to the setter for their field.
var envMapping = map[string]func(c *Config, v string) error{
	"LOG_LEVEL": func(c *Config, v string) error { c.Log.Level = v; return nil },
	"LOG_FILE":  func(c *Config, v string) error { c.Log.File = v; return nil },
	"INITIAL_CONTEXT": func(c *Config, v string) error {
		c.Router.InitialContext = v
		return nil
	},
	"BINDINGS_DIRS": func(c *Config, v string) error {
		c.Bindings.Dirs = filepath.SplitList(v)
		return nil
	},
	"BINDINGS_WATCH": func(c *Config, v string) (err error) {
		c.Bindings.Watch, err = strconv.ParseBool(v)
		return err
	},
	"SCRIPTS_DIRS": func(c *Config, v string) error {
		c.Scripts.Dirs = filepath.SplitList(v)
		return nil
	},
	"REMOTE_ENABLED": func(c *Config, v string) (err error) {
		c.Remote.Enabled, err = strconv.ParseBool(v)
		return err
	},
	"REMOTE_ADDR": func(c *Config, v string) error { c.Remote.Addr = v; return nil },
}

// ApplyEnv overrides settings from environment variables named
// EnvPrefix + key, such as SPATIALCMS_LOG_LEVEL. lookup is usually
// os.LookupEnv. Empty values count as set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for key, set := range envMapping {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		if err := set(c, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
	}
	return nil
}
