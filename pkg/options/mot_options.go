package options

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const (
	// DefaultMotBaseURL is the production MOT history trade API.
	DefaultMotBaseURL = "https://history.mot.api.gov.uk"

	// DefaultMotScope is the client-credentials scope the trade API expects.
	DefaultMotScope = "https://tapi.dvsa.gov.uk/.default"
)

var _ IOptions = (*MotOptions)(nil)

// MotOptions holds the credentials and endpoints of the MOT history API.
type MotOptions struct {
	APIKey       string `json:"api-key" mapstructure:"api-key"`
	ClientID     string `json:"client-id" mapstructure:"client-id"`
	ClientSecret string `json:"client-secret" mapstructure:"client-secret"`

	// TokenURL is the OAuth2 token endpoint of the identity provider.
	TokenURL string `json:"token-url" mapstructure:"token-url"`
	Scope    string `json:"scope" mapstructure:"scope"`
	BaseURL  string `json:"base-url" mapstructure:"base-url"`

	// RequestTimeout bounds every single HTTP round trip.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`

	// ValidateOnStart probes the first tracked registration before serving.
	ValidateOnStart bool `json:"validate-on-start" mapstructure:"validate-on-start"`
}

// NewMotOptions returns MotOptions with the public endpoints filled in.
func NewMotOptions() *MotOptions {
	return &MotOptions{
		Scope:          DefaultMotScope,
		BaseURL:        DefaultMotBaseURL,
		RequestTimeout: 30 * time.Second,
	}
}

// Complete trims user input and restores defaults for blank scope and base URL.
func (o *MotOptions) Complete() {
	o.APIKey = strings.TrimSpace(o.APIKey)
	o.ClientID = strings.TrimSpace(o.ClientID)
	o.ClientSecret = strings.TrimSpace(o.ClientSecret)
	o.TokenURL = strings.TrimSpace(o.TokenURL)

	if o.Scope = strings.TrimSpace(o.Scope); o.Scope == "" {
		o.Scope = DefaultMotScope
	}
	if o.BaseURL = strings.TrimSpace(o.BaseURL); o.BaseURL == "" {
		o.BaseURL = DefaultMotBaseURL
	}
}

// Validate checks that credentials are present and URLs are usable.
func (o *MotOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.APIKey == "" {
		errs = append(errs, errRequired("mot.api-key"))
	}
	if o.ClientID == "" {
		errs = append(errs, errRequired("mot.client-id"))
	}
	if o.ClientSecret == "" {
		errs = append(errs, errRequired("mot.client-secret"))
	}
	if o.TokenURL == "" {
		errs = append(errs, errRequired("mot.token-url"))
	} else if err := ValidateURL("mot.token-url", o.TokenURL); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateURL("mot.base-url", o.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if o.RequestTimeout <= 0 {
		errs = append(errs, errNonPositive("mot.request-timeout"))
	}
	return errs
}

// AddFlags adds the MOT API flags to fs.
func (o *MotOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.APIKey, "mot.api-key", o.APIKey, "API key sent in the X-API-Key header.")
	fs.StringVar(&o.ClientID, "mot.client-id", o.ClientID, "OAuth2 client ID.")
	fs.StringVar(&o.ClientSecret, "mot.client-secret", o.ClientSecret, "OAuth2 client secret.")
	fs.StringVar(&o.TokenURL, "mot.token-url", o.TokenURL, "OAuth2 token endpoint URL.")
	fs.StringVar(&o.Scope, "mot.scope", o.Scope, "OAuth2 scope requested with the client credentials grant.")
	fs.StringVar(&o.BaseURL, "mot.base-url", o.BaseURL, "Base URL of the MOT history API.")
	fs.DurationVar(&o.RequestTimeout, "mot.request-timeout", o.RequestTimeout, "Total timeout of a single API request.")
	fs.BoolVar(&o.ValidateOnStart, "mot.validate-on-start", o.ValidateOnStart, "Look up the first tracked vehicle at startup and refuse to start on rejected credentials.")
}
