package dvsa

import (
	"github.com/autopeer-io/motwatch/pkg/options"
)

// NewClientFromOptions builds a Client and its TokenCache from opts.
func NewClientFromOptions(opts *options.MotOptions) *Client {
	tokens := NewTokenCache(TokenConfig{
		TokenURL:     opts.TokenURL,
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Scope:        opts.Scope,
		Timeout:      opts.RequestTimeout,
	})
	return NewClient(Config{
		BaseURL: opts.BaseURL,
		APIKey:  opts.APIKey,
		Timeout: opts.RequestTimeout,
	}, tokens)
}
