package config

import (
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

type Storage struct {
	// Where stack state is kept: "refs" (refs/pstack/<branch>) or "file"
	// (.git/pstack/<branch>.json).
	Backend string
}

type New struct {
	// The maximum length of patch names generated from commit messages.
	NameLength int
	// A file whose contents pre-fill the editor when writing a patch message.
	Template string
	// Include changed submodules when refreshing a new patch.
	RefreshSubmodules bool
}

type Config struct {
	Storage Storage
	New     New
	// The editor command. If empty, git's editor is used.
	Editor string
	// "auto", "always" or "never".
	Color string
}

const (
	BackendRefs = "refs"
	BackendFile = "file"
)

func defaults() Config {
	return Config{
		Storage: Storage{Backend: BackendRefs},
		New:     New{NameLength: 30},
		Color:   "auto",
	}
}

// Pstack holds the loaded configuration.
var Pstack = defaults()

// Load initializes the configuration values.
// It may optionally be called with a list of additional paths to check for the
// config file.
// Returns a boolean indicating whether or not a config file was loaded and an
// error if one occurred.
func Load(paths []string) (bool, error) {
	Pstack = defaults()
	config := viper.New()

	// Viper has support for various formats, so it supports json, toml, yaml,
	// and more (https://github.com/spf13/viper#reading-config-files).
	config.SetConfigName("config")

	// Reasonable places to look for config files.
	config.AddConfigPath(filepath.Join(xdg.ConfigHome, "pstack"))
	config.AddConfigPath("$HOME/.pstack")
	if home := os.Getenv("PSTACK_HOME"); home != "" {
		config.AddConfigPath(home)
	}
	// Add additional custom paths.
	// The primary use case for this is adding repository-specific
	// configuration (e.g., $REPO/.git/pstack/config.yaml).
	for _, path := range paths {
		config.AddConfigPath(path)
	}

	// Every key needs a default for the environment to be consulted.
	d := defaults()
	config.SetDefault("storage.backend", d.Storage.Backend)
	config.SetDefault("new.nameLength", d.New.NameLength)
	config.SetDefault("new.template", d.New.Template)
	config.SetDefault("new.refreshSubmodules", d.New.RefreshSubmodules)
	config.SetDefault("editor", d.Editor)
	config.SetDefault("color", d.Color)
	config.SetEnvPrefix("PSTACK")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	loaded := true
	if err := config.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return false, errors.Wrap(err, "failed to read pstack config")
		}
		loaded = false
	}

	if err := config.Unmarshal(&Pstack); err != nil {
		return loaded, errors.Wrap(err, "failed to read pstack configs")
	}
	switch Pstack.Storage.Backend {
	case BackendRefs, BackendFile:
	default:
		return loaded, errors.Errorf(
			"invalid storage.backend %q (expected %q or %q)",
			Pstack.Storage.Backend, BackendRefs, BackendFile,
		)
	}
	if Pstack.New.NameLength <= 0 {
		return loaded, errors.Errorf("invalid new.nameLength %d (must be positive)", Pstack.New.NameLength)
	}
	return loaded, nil
}
