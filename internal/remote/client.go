// Package remote talks to the CosmicDS REST backend: student bootstrap and
// per-story / per-stage state synchronization.
//
// Operations never retry. Missing records and rejected operations are logged
// and reported as an absent result with a nil error; only transport failures
// and undecodable success bodies come back as errors.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cosmicds/internal/identity"
	"cosmicds/internal/logging"
)

const DefaultBaseURL = "https://api.cosmicds.cfa.harvard.edu"

type Options struct {
	BaseURL string
	// APIKey is sent verbatim as the Authorization header.
	APIKey string
	// Secret salts the identity hash.
	Secret string
	// Timeout bounds each request; zero leaves it to the transport.
	Timeout       time.Duration
	SignUpConfirm ConfirmOptions
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
	Logger    *zerolog.Logger
}

// ConfirmOptions enables polling for a freshly created student before it is
// loaded. Attempts of zero trusts the backend to be read-after-write
// consistent.
type ConfirmOptions struct {
	Attempts        int
	InitialInterval time.Duration
}

// Client is built once per process and shared by every operation.
type Client struct {
	baseURL  string
	http     *http.Client
	resolver *identity.Resolver
	confirm  ConfirmOptions
	log      zerolog.Logger
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", base, err)
	}
	if opts.SignUpConfirm.Attempts < 0 {
		return nil, fmt.Errorf("sign-up confirm attempts must not be negative")
	}

	log := logging.Component("API")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if opts.APIKey == "" {
		log.Warn().Msg("no api key configured, requests are unauthenticated")
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Transport: &authTransport{key: opts.APIKey, base: transport},
			Timeout:   opts.Timeout,
		},
		resolver: identity.NewResolver(opts.Secret),
		confirm:  opts.SignUpConfirm,
		log:      log,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// HashedUser resolves the backend key for user. Failures are logged and
// reported through ok so that callers stop before any remote call.
func (c *Client) HashedUser(user *identity.UserInfo) (hash string, ok bool) {
	hash, err := c.resolver.Resolve(user)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to create hash")
		return "", false
	}
	return hash, true
}

type authTransport struct {
	key  string
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key == "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", t.key)
	return t.base.RoundTrip(clone)
}

// decodeError reports a response body that is not the JSON we expected.
type decodeError struct {
	path string
	err  error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.path, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	var de *decodeError
	return errors.As(err, &de)
}

func endpoint(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// do sends one request and decodes the JSON body into out when out is non-nil.
// A body that fails to decode on a non-2xx status leaves out untouched and is
// not an error: callers treat it as an absent payload.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading %s %s: %w", method, path, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if !success(resp.StatusCode) {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, &decodeError{path: path, err: err}
	}
	return resp.StatusCode, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
