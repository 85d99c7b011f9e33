package domain

import (
	"fmt"
	"net/url"
	"time"
)

// SentinelPassword is handed to callers in place of a stored secret.
// An update that carries this exact value (or no value at all) leaves
// the stored password untouched, so the real secret never round-trips
// through the presentation layer.
const SentinelPassword = "********"

// Endpoint defines a remote registry destination that rules replicate to
type Endpoint struct {
	// ID is the opaque identifier assigned on creation
	ID string `json:"id"`

	// Name is the unique, operator-facing identifier
	Name string `json:"name"`

	// URL is the scheme-qualified registry address
	URL string `json:"url"`

	// Username for basic auth (optional)
	Username string `json:"username,omitempty"`

	// Password for basic auth (optional, never redisplayed)
	Password string `json:"password,omitempty"`

	// Insecure skips TLS verification when true
	Insecure bool `json:"insecure"`

	// CreatedAt records when the endpoint was persisted
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the endpoint is properly configured
func (e Endpoint) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: endpoint name cannot be empty", ErrValidation)
	}
	if e.URL == "" {
		return fmt.Errorf("%w: endpoint URL cannot be empty", ErrValidation)
	}
	u, err := url.Parse(e.URL)
	if err != nil {
		return fmt.Errorf("%w: malformed endpoint URL %q: %v", ErrValidation, e.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: endpoint URL %q must use http or https", ErrValidation, e.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: endpoint URL %q has no host", ErrValidation, e.URL)
	}
	return nil
}

// Redacted returns a copy safe to hand outward: the stored password is
// replaced with the sentinel when one is set
func (e Endpoint) Redacted() Endpoint {
	if e.Password != "" {
		e.Password = SentinelPassword
	}
	return e
}
