package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*APIOptions)(nil)

// APIOptions contains configuration for the REST API client and the account
// used to log in.
type APIOptions struct {
	URL      string        `json:"url" mapstructure:"url"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	Username string        `json:"username" mapstructure:"username"`
	Password string        `json:"password" mapstructure:"password"`
}

// NewAPIOptions creates a new APIOptions with default values.
func NewAPIOptions() *APIOptions {
	return &APIOptions{
		URL:     "http://localhost:8080/api/v1",
		Timeout: 30 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *APIOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if err := ValidateURL("api.url", o.URL, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("--api.timeout must be greater than 0"))
	}

	return errs
}

// AddFlags adds flags for APIOptions to the specified FlagSet.
func (o *APIOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, "api.url", o.URL, "Base URL of the chat REST API.")
	fs.DurationVar(&o.Timeout, "api.timeout", o.Timeout, "Timeout for a single REST request.")
	fs.StringVar(&o.Username, "api.username", o.Username, "Username to log in with.")
	fs.StringVar(&o.Password, "api.password", o.Password, "Password to log in with. Prefer ROOMWIRE_API_PASSWORD.")
}
