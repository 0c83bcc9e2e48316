package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*MetricsOptions)(nil)

// MetricsOptions contains configuration items related to the metrics HTTP server.
type MetricsOptions struct {
	// Addr is the bind address of the metrics server. Empty disables it.
	Addr string `json:"addr" mapstructure:"addr"`

	// Path the metrics are served on.
	Path string `json:"path" mapstructure:"path"`
}

// NewMetricsOptions creates a MetricsOptions object with default parameters.
func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		Path: "/metrics",
	}
}

// Enabled reports whether the metrics server should run.
func (o *MetricsOptions) Enabled() bool {
	return o != nil && o.Addr != ""
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MetricsOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	errors := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errors = append(errors, err)
	}

	return errors
}

// AddFlags adds flags related to the metrics server to the specified FlagSet.
func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, "metrics.addr", o.Addr, "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9090). Empty disables it.")
	fs.StringVar(&o.Path, "metrics.path", o.Path, "HTTP path the metrics are served on.")
}
