package options

import (
	"errors"

	"github.com/spf13/pflag"
)

var _ IOptions = (*StoreOptions)(nil)

// StoreOptions configures the local transcript store.
type StoreOptions struct {
	// Path is the pebble data directory. Empty disables the store.
	Path string `json:"path" mapstructure:"path"`

	// History is the number of stored lines replayed when joining a room.
	History int `json:"history" mapstructure:"history"`
}

// NewStoreOptions creates a StoreOptions object with default parameters.
func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		History: 50,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *StoreOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.History < 0 {
		errs = append(errs, errors.New("--store.history must not be negative"))
	}

	return errs
}

// AddFlags adds flags for StoreOptions to the specified FlagSet.
func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "store.path", o.Path, "Directory for the local chat transcript. Empty disables it.")
	fs.IntVar(&o.History, "store.history", o.History, "Number of stored lines replayed when joining a room.")
}
