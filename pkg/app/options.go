package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// NamedFlagSetOptions is implemented by the top level options of a command.
// The struct is also the target viper decodes the config file into, so its
// fields carry mapstructure tags matching the flag prefixes.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in defaults that depend on other fields.
	Complete() error

	// Validate reports every invalid field at once.
	Validate() error
}
