package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/appdock/appdock/sdk/go/auth"
	"github.com/appdock/appdock/sdk/go/document"
	"github.com/appdock/appdock/sdk/go/routes"
	"github.com/appdock/appdock/sdk/go/transport"
	"github.com/appdock/appdock/sdk/go/trust"
)

const defaultBaseURL = "https://api.appdock.dev"

// Config wires endpoints, the host environment and telemetry for the client.
// Endpoints left empty are derived from BaseURL.
type Config struct {
	BaseURL           string
	DocumentsURL      string
	IdentityLookupURL string
	TrustListURL      string
	LoginURL          string
	AccountManagerURL string
	// APIKey is the public project key sent with identity and document calls.
	APIKey string

	// Environment is the page the SDK runs in. Required.
	Environment Environment
	// Transport overrides the default HTTP transport.
	Transport  transport.Transport
	HTTPClient *http.Client
	UserAgent  string

	Logger    *zerolog.Logger
	Telemetry TelemetryHooks

	// TrustCacheTTL is how often the trusted sites list is fetched again.
	// The last good list stays in use when a later fetch fails. Zero
	// fetches it once per client.
	TrustCacheTTL time.Duration
	// TreatUnknownOriginAsUntrusted shows the advisory when the trusted
	// sites list cannot be fetched.
	TreatUnknownOriginAsUntrusted bool
}

// Client is the embedded SDK: it bootstraps the session from the page URL,
// evaluates the hosting origin and stores per-app user documents.
type Client struct {
	env               Environment
	tel               telemetry
	session           *Session
	trust             *trust.Evaluator
	lookup            *auth.Client
	store             *appDataStore
	loginURL          string
	accountManagerURL string

	mu          sync.RWMutex
	initialized bool
	appID       AppID
	outcome     Outcome
	trustDone   chan struct{}
}

// NewClient validates the configuration and returns a Client. No I/O happens
// until Initialize.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Environment == nil {
		return nil, &ConfigurationError{Field: "environment", Reason: "required"}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	endpoint := func(override, route string) (string, error) {
		if strings.TrimSpace(override) == "" {
			return base + route, nil
		}
		return normalizeBaseURL(override)
	}
	documentsURL, err := endpoint(cfg.DocumentsURL, "")
	if err != nil {
		return nil, err
	}
	lookupURL, err := endpoint(cfg.IdentityLookupURL, routes.AccountsLookup)
	if err != nil {
		return nil, err
	}
	trustURL, err := endpoint(cfg.TrustListURL, routes.TrustedSites)
	if err != nil {
		return nil, err
	}
	loginURL, err := endpoint(cfg.LoginURL, routes.Login)
	if err != nil {
		return nil, err
	}
	accountURL, err := endpoint(cfg.AccountManagerURL, routes.AccountManager)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("component", "appdock").Logger()
	tel := telemetry{hooks: cfg.Telemetry, logger: logger}

	tr := cfg.Transport
	if tr == nil {
		tr = transport.NewHTTPTransport(transport.Config{
			HTTPClient: cfg.HTTPClient,
			UserAgent:  cfg.UserAgent,
			Hooks:      tel.transportHooks(),
		})
	}

	evaluator, err := trust.NewEvaluator(trust.Config{
		ListURL:                 trustURL,
		Transport:               tr,
		Logger:                  &logger,
		TTL:                     cfg.TrustCacheTTL,
		TreatUnknownAsUntrusted: cfg.TreatUnknownOriginAsUntrusted,
	})
	if err != nil {
		return nil, err
	}
	lookup, err := auth.NewClient(auth.Config{LookupURL: lookupURL, APIKey: cfg.APIKey, Transport: tr})
	if err != nil {
		return nil, err
	}

	c := &Client{
		env:               cfg.Environment,
		tel:               tel,
		session:           NewSession(),
		trust:             evaluator,
		lookup:            lookup,
		loginURL:          loginURL,
		accountManagerURL: accountURL,
		trustDone:         make(chan struct{}),
	}
	c.store = &appDataStore{
		baseURL:   documentsURL,
		apiKey:    cfg.APIKey,
		transport: tr,
		session:   c.session,
		tel:       tel,
		appID:     c.AppID,
	}
	return c, nil
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("sdk: base URL required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("sdk: invalid base URL: %w", err)
	}
	if u.Scheme == "" {
		return "", errors.New("sdk: base URL missing scheme (http/https)")
	}
	if u.Host == "" {
		return "", errors.New("sdk: base URL missing host")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return strings.TrimSuffix(u.String(), "/"), nil
}

// Initialize validates appID, starts the trust check in the background and
// bootstraps the session from the current URL. Only an invalid appID (or a
// second call) is reported; bootstrap problems are absorbed and visible via
// BootstrapOutcome.
func (c *Client) Initialize(ctx context.Context, appID string) error {
	id, err := ValidateAppID(appID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return &ConfigurationError{Field: "client", Reason: "already initialized"}
	}
	c.initialized = true
	c.appID = id
	c.mu.Unlock()

	trustCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(c.trustDone)
		c.trust.Refresh(trustCtx)
		c.maybeWarn(trustCtx)
	}()

	boot := bootstrapper{env: c.env, lookup: c.lookup, session: c.session, tel: c.tel}
	outcome := boot.run(ctx)

	c.mu.Lock()
	c.outcome = outcome
	c.mu.Unlock()
	c.tel.log(ctx, LogLevelInfo, "sdk initialized", nil, map[string]any{
		"app_id":    string(id),
		"bootstrap": outcome.State.String(),
	})
	return nil
}

// maybeWarn shows the untrusted-site advisory at most once per browsing
// session.
func (c *Client) maybeWarn(ctx context.Context) {
	host := c.host()
	if !c.trust.ShouldWarn(host, c.env.SessionFlag(untrustedWarningFlag)) {
		return
	}
	c.env.SetSessionFlag(untrustedWarningFlag, true)
	c.env.ShowNotice(Notice{
		Kind:              NoticeUntrustedSite,
		Host:              host,
		Message:           fmt.Sprintf("%s is not a verified site. Only sign in if you trust it.", host),
		AccountManagerURL: c.AccountManagerURL(),
		Dismissible:       true,
	})
	c.tel.log(ctx, LogLevelWarn, "untrusted site advisory shown", nil, map[string]any{"host": host})
}

func (c *Client) host() string {
	loc := c.env.Location()
	if loc == nil {
		return ""
	}
	return loc.Hostname()
}

// AppID returns the configured application id, empty before Initialize.
func (c *Client) AppID() AppID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appID
}

// BootstrapOutcome reports how session bootstrap ended.
func (c *Client) BootstrapOutcome() Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outcome
}

// CurrentUser returns the sealed identity, if any.
func (c *Client) CurrentUser() (Identity, bool) {
	return c.session.Current()
}

// IsAuthenticated reports whether a sealed identity exists.
func (c *Client) IsAuthenticated() bool {
	return c.session.Authenticated()
}

// SignOut forgets the identity and token locally.
func (c *Client) SignOut() {
	c.session.Clear()
	c.tel.log(context.Background(), LogLevelInfo, "signed out", nil, nil)
}

// TrustStatus classifies the hosting origin against the trusted sites list.
// It is StatusUnknown until the background fetch completes.
func (c *Client) TrustStatus() trust.Status {
	return c.trust.Status(c.host())
}

// WaitTrust blocks until the background trust check has finished.
func (c *Client) WaitTrust(ctx context.Context) error {
	c.mu.RLock()
	initialized := c.initialized
	c.mu.RUnlock()
	if !initialized {
		return &ConfigurationError{Field: "client", Reason: "not initialized"}
	}
	select {
	case <-c.trustDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoginURL builds the sign-in URL that returns to returnURL, or to the
// current page when returnURL is empty.
func (c *Client) LoginURL(returnURL string) string {
	if returnURL == "" {
		if loc := c.env.Location(); loc != nil {
			returnURL = loc.String()
		}
	}
	u, err := url.Parse(c.loginURL)
	if err != nil {
		return c.loginURL
	}
	q := u.Query()
	q.Set("redirect", returnURL)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedirectToLogin navigates to the sign-in page.
func (c *Client) RedirectToLogin(returnURL string) {
	c.env.Navigate(c.LoginURL(returnURL))
}

// AccountManagerURL prefers the official URL published in the trusted
// sites list over the configured one.
func (c *Client) AccountManagerURL() string {
	if official, ok := c.trust.OfficialAccountManager(); ok {
		return official
	}
	return c.accountManagerURL
}

// OpenAccountManager navigates to the account manager.
func (c *Client) OpenAccountManager() {
	c.env.Navigate(c.AccountManagerURL())
}

// GetAppData returns the signed-in user's document for this app. A missing
// document yields an empty map.
func (c *Client) GetAppData(ctx context.Context) (*document.Map, error) {
	return c.store.Get(ctx)
}

// UpdateAppData merges patch into the stored document key by key.
func (c *Client) UpdateAppData(ctx context.Context, patch *document.Map) error {
	return c.store.Merge(ctx, patch)
}

// SetAppData replaces the stored document with doc.
func (c *Client) SetAppData(ctx context.Context, doc *document.Map) error {
	return c.store.Replace(ctx, doc)
}

// DeleteAppData removes the stored document. Deleting a missing document
// succeeds.
func (c *Client) DeleteAppData(ctx context.Context) error {
	return c.store.Delete(ctx)
}
