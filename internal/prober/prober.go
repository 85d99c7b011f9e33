// Package prober checks reachability and credentials of a registry
// endpoint, persisted or still being authored. Probes are side-effect
// free; at most one probe may be outstanding per session key.
package prober

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/store"
)

// DefaultTimeout bounds a single probe when the caller's context
// carries no deadline of its own
const DefaultTimeout = 30 * time.Second

// Candidate is a fully specified probe target for an endpoint that is
// not yet saved
type Candidate struct {
	URL      string
	Username string
	Password string
	Insecure bool
}

// Prober tests endpoint connectivity
type Prober struct {
	endpoints store.EndpointStore
	timeout   time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates a prober. endpoints may be nil if only ad-hoc probes are
// needed.
func New(endpoints store.EndpointStore, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		endpoints: endpoints,
		timeout:   timeout,
		inFlight:  make(map[string]bool),
	}
}

// TestEndpoint probes a persisted endpoint, reusing its stored
// credentials. The endpoint id doubles as the session key.
func (p *Prober) TestEndpoint(ctx context.Context, id string) error {
	if p.endpoints == nil {
		return fmt.Errorf("no endpoint store configured")
	}
	ep, err := p.endpoints.GetEndpoint(ctx, id)
	if err != nil {
		return err
	}
	return p.Test(ctx, id, Candidate{
		URL:      ep.URL,
		Username: ep.Username,
		Password: ep.Password,
		Insecure: ep.Insecure,
	})
}

// Test probes a candidate endpoint under the given session key. A
// second probe for the same key while one is outstanding is rejected
// with domain.ErrProbeInFlight; distinct keys probe concurrently.
func (p *Prober) Test(ctx context.Context, sessionKey string, c Candidate) error {
	if err := p.begin(sessionKey); err != nil {
		return err
	}
	defer p.end(sessionKey)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	return p.ping(ctx, c)
}

func (p *Prober) begin(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[key] {
		return fmt.Errorf("%w: session %s", domain.ErrProbeInFlight, key)
	}
	p.inFlight[key] = true
	return nil
}

func (p *Prober) end(key string) {
	p.mu.Lock()
	delete(p.inFlight, key)
	p.mu.Unlock()
}

// ping performs the v2 ping plus auth exchange against the registry
func (p *Prober) ping(ctx context.Context, c Candidate) error {
	u, err := url.Parse(strings.TrimSpace(c.URL))
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: malformed endpoint URL %q", domain.ErrValidation, c.URL)
	}

	nameOpts := []name.Option{name.WeakValidation}
	if u.Scheme == "http" || c.Insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}

	reg, err := name.NewRegistry(u.Host, nameOpts...)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var auth authn.Authenticator = authn.Anonymous
	if c.Username != "" || c.Password != "" {
		auth = &authn.Basic{Username: c.Username, Password: c.Password}
	}

	rt := http.RoundTripper(http.DefaultTransport)
	if c.Insecure {
		rt = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	// transport.NewWithContext pings /v2/ and completes the token
	// exchange for bearer registries. Basic-auth registries accept any
	// credentials at this stage, so an authenticated /v2/ round trip
	// follows to verify those too.
	tr, err := transport.NewWithContext(ctx, reg, auth, rt, []string{reg.Scope(transport.PullScope)})
	if err != nil {
		return classify(err)
	}

	pingURL := fmt.Sprintf("%s://%s/v2/", reg.Scheme(), reg.RegistryStr())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	resp, err := (&http.Client{Transport: tr}).Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()
	if err := transport.CheckError(resp, http.StatusOK); err != nil {
		return classify(err)
	}
	return nil
}

// classify converts transport failures into the connectivity error with
// a caller-presentable reason attached
func classify(err error) error {
	var terr *transport.Error
	if errors.As(err, &terr) {
		switch terr.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: authentication rejected", domain.ErrConnectivity)
		case http.StatusForbidden:
			return fmt.Errorf("%w: access denied", domain.ErrConnectivity)
		}
		return fmt.Errorf("%w: registry returned status %d", domain.ErrConnectivity, terr.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "authentication required"):
		return fmt.Errorf("%w: authentication rejected", domain.ErrConnectivity)
	case strings.Contains(msg, "no such host"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "dial tcp"):
		return fmt.Errorf("%w: registry unreachable: %v", domain.ErrConnectivity, err)
	case strings.Contains(msg, "certificate"):
		return fmt.Errorf("%w: TLS verification failed: %v", domain.ErrConnectivity, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrConnectivity, err)
}
