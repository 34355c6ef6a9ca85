package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadFlowParams reads the YAML file at path and decodes it into out,
// grounded on cli/root.go's initConfig (viper.SetConfigFile +
// viper.ReadInConfig) but scoped to one flow's parameter file instead
// of the whole service's configuration.
func LoadFlowParams(path string, out any) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading params file %s: %w", path, err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("config: decoding params file %s: %w", path, err)
	}
	return nil
}
