package options

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/roomwire-io/roomwire/internal/roomwire"
	"github.com/roomwire-io/roomwire/pkg/log"
	"github.com/roomwire-io/roomwire/pkg/options"
)

type RoomwireOptions struct {
	WSOptions      *options.WSOptions      `json:"ws" mapstructure:"ws"`
	APIOptions     *options.APIOptions     `json:"api" mapstructure:"api"`
	MetricsOptions *options.MetricsOptions `json:"metrics" mapstructure:"metrics"`
	StoreOptions   *options.StoreOptions   `json:"store" mapstructure:"store"`
	Log            *log.Options            `json:"log" mapstructure:"log"`
}

func NewRoomwireOptions() *RoomwireOptions {
	o := &RoomwireOptions{
		WSOptions:      options.NewWSOptions(),
		APIOptions:     options.NewAPIOptions(),
		MetricsOptions: options.NewMetricsOptions(),
		StoreOptions:   options.NewStoreOptions(),
		Log:            log.NewOptions(),
	}

	return o
}

func (o *RoomwireOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.WSOptions.AddFlags(fss.FlagSet("ws"))
	o.APIOptions.AddFlags(fss.FlagSet("api"))
	o.MetricsOptions.AddFlags(fss.FlagSet("metrics"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete expands a leading "~/" in the transcript path.
func (o *RoomwireOptions) Complete() error {
	if p, ok := strings.CutPrefix(o.StoreOptions.Path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand --store.path: %w", err)
		}
		o.StoreOptions.Path = filepath.Join(home, p)
	}
	return nil
}

func (o *RoomwireOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.WSOptions.Validate()...)
	errs = append(errs, o.APIOptions.Validate()...)
	errs = append(errs, o.MetricsOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *RoomwireOptions) Config(in io.Reader, out io.Writer) (*roomwire.Config, error) {
	return &roomwire.Config{
		WSOptions:      o.WSOptions,
		APIOptions:     o.APIOptions,
		MetricsOptions: o.MetricsOptions,
		StoreOptions:   o.StoreOptions,
		In:             in,
		Out:            out,
	}, nil
}
