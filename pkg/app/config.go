package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/motwatch/pkg/log"
)

const configFlagName = "config"

// ConfigChangeFunc is called after the watched config file changed on disk.
// v holds the merged view of file, environment and flags.
type ConfigChangeFunc func(v *viper.Viper, e fsnotify.Event)

// AddConfigFlag registers --config on fs and returns its value.
func AddConfigFlag(fs *pflag.FlagSet, name string) *string {
	return fs.StringP(configFlagName, "c", "",
		fmt.Sprintf("Read configuration from the specified file. Searched as %s.{yaml,toml,json} in ., $HOME/.%s and /etc/%s when empty.", name, name, name))
}

// newViper binds fs and the environment. Flags set on the command line win
// over the environment, which wins over the config file.
func newViper(name string, fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// readConfig loads cfgFile, or searches the default locations when it is empty.
// A missing file is only an error when it was named explicitly.
func readConfig(v *viper.Viper, name, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(name)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+name))
		}
		v.AddConfigPath(filepath.Join("/etc", name))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	return nil
}

// LoadConfig binds fs, reads the config file and decodes the merged result
// into target.
func LoadConfig(name string, fs *pflag.FlagSet, cfgFile string, target any) (*viper.Viper, error) {
	v, err := newViper(name, fs)
	if err != nil {
		return nil, err
	}
	if err := readConfig(v, name, cfgFile); err != nil {
		return nil, err
	}
	if err := decode(v, target); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return v, nil
}

func decode(v *viper.Viper, target any) error {
	return v.Unmarshal(target, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
}

func watchConfig(v *viper.Viper, fn ConfigChangeFunc) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed", "file", e.Name, "op", e.Op.String())
		fn(v, e)
	})
	v.WatchConfig()
}
