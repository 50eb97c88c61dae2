// Package trust decides, advisory only, whether the host embedding the SDK is
// on the remote list of trusted sites.
package trust

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/net/idna"

	"github.com/appdock/appdock/sdk/go/transport"
)

const listKey = "sites"

// SiteList is the trusted sites document served by the identity provider.
type SiteList struct {
	TrustedSites           []string `json:"trustedSites"`
	OfficialAccountManager string   `json:"officialAccountManager"`
}

// Status is the outcome of a trust check.
type Status int

const (
	// StatusUnknown means the list has not been fetched (or the fetch failed).
	StatusUnknown Status = iota
	StatusTrusted
	StatusUntrusted
)

func (s Status) String() string {
	switch s {
	case StatusTrusted:
		return "trusted"
	case StatusUntrusted:
		return "untrusted"
	default:
		return "unknown"
	}
}

// Config wires the list location and the fetch transport.
type Config struct {
	ListURL   string
	Transport transport.Transport
	Logger    *zerolog.Logger
	// TTL is how long a fetched list is used before the next read fetches
	// it again. A failed re-fetch keeps the last good list. Zero keeps the
	// first list for the lifetime of the Evaluator.
	TTL time.Duration
	// TreatUnknownAsUntrusted makes ShouldWarn fire when no list is available.
	TreatUnknownAsUntrusted bool
}

// Evaluator fetches and caches the trusted sites list.
type Evaluator struct {
	listURL       string
	transport     transport.Transport
	logger        zerolog.Logger
	unknownPolicy bool
	cache         *ttlcache.Cache[string, SiteList]

	mu       sync.Mutex
	lastGood *SiteList
	fetchCtx context.Context
}

// NewEvaluator validates cfg. An empty ListURL is allowed: every check then
// reports StatusUnknown.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.ListURL != "" && cfg.Transport == nil {
		return nil, errors.New("trust: transport required")
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	e := &Evaluator{
		listURL:       strings.TrimSpace(cfg.ListURL),
		transport:     cfg.Transport,
		logger:        logger.With().Str("component", "trust").Logger(),
		unknownPolicy: cfg.TreatUnknownAsUntrusted,
		fetchCtx:      context.Background(),
	}
	e.cache = ttlcache.New[string, SiteList](
		ttlcache.WithTTL[string, SiteList](cfg.TTL),
		ttlcache.WithDisableTouchOnHit[string, SiteList](),
		ttlcache.WithLoader[string, SiteList](
			ttlcache.NewSuppressedLoader[string, SiteList](ttlcache.LoaderFunc[string, SiteList](e.reload), nil),
		),
	)
	return e, nil
}

// Refresh fetches the list and caches it. Failures are logged and absorbed;
// a previously cached list stays in place.
func (e *Evaluator) Refresh(ctx context.Context) {
	e.mu.Lock()
	e.fetchCtx = context.WithoutCancel(ctx)
	e.mu.Unlock()
	if err := e.refresh(ctx); err != nil {
		e.logger.Warn().Err(err).Str("url", e.listURL).Msg("trusted sites list unavailable")
	}
}

func (e *Evaluator) refresh(ctx context.Context) error {
	list, err := e.fetch(ctx)
	if err != nil {
		return err
	}
	e.Store(list)
	e.logger.Debug().Int("sites", len(list.TrustedSites)).Msg("trusted sites list cached")
	return nil
}

func (e *Evaluator) fetch(ctx context.Context) (SiteList, error) {
	if e.listURL == "" {
		return SiteList{}, errors.New("no trusted sites list configured")
	}
	resp, err := e.transport.Send(ctx, transport.Request{Method: http.MethodGet, URL: e.listURL})
	if err != nil {
		return SiteList{}, err
	}
	if !resp.OK() {
		return SiteList{}, fmt.Errorf("unexpected status %d", resp.Status)
	}
	var list SiteList
	if err := resp.JSON(&list); err != nil {
		return SiteList{}, fmt.Errorf("decode list: %w", err)
	}
	return list, nil
}

// reload runs when a read finds the list expired. Until a list has been
// stored once there is nothing to reload and the status stays unknown.
func (e *Evaluator) reload(c *ttlcache.Cache[string, SiteList], key string) *ttlcache.Item[string, SiteList] {
	e.mu.Lock()
	last, ctx := e.lastGood, e.fetchCtx
	e.mu.Unlock()
	if last == nil {
		return nil
	}
	list, err := e.fetch(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Str("url", e.listURL).Msg("trusted sites list refresh failed, keeping previous list")
		return c.Set(key, *last, ttlcache.DefaultTTL)
	}
	list = e.remember(list)
	e.logger.Debug().Int("sites", len(list.TrustedSites)).Msg("trusted sites list refreshed")
	return c.Set(key, list, ttlcache.DefaultTTL)
}

// Store caches list as if it had been fetched. Domains are normalised.
func (e *Evaluator) Store(list SiteList) {
	e.cache.Set(listKey, e.remember(list), ttlcache.DefaultTTL)
}

func (e *Evaluator) remember(list SiteList) SiteList {
	domains := make([]string, 0, len(list.TrustedSites))
	for _, d := range list.TrustedSites {
		if n := normalizeDomain(d); n != "" {
			domains = append(domains, n)
		}
	}
	list.TrustedSites = domains
	list.OfficialAccountManager = strings.TrimSpace(list.OfficialAccountManager)
	e.mu.Lock()
	kept := list
	kept.TrustedSites = append([]string(nil), domains...)
	e.lastGood = &kept
	e.mu.Unlock()
	return list
}

// Sites returns the cached list.
func (e *Evaluator) Sites() (SiteList, bool) {
	item := e.cache.Get(listKey)
	if item == nil {
		return SiteList{}, false
	}
	list := item.Value()
	list.TrustedSites = append([]string(nil), list.TrustedSites...)
	return list, true
}

// Status classifies host against the cached list.
func (e *Evaluator) Status(host string) Status {
	list, ok := e.Sites()
	if !ok {
		return StatusUnknown
	}
	if Matches(host, list.TrustedSites) {
		return StatusTrusted
	}
	return StatusUntrusted
}

// IsTrusted reports whether host is on the cached list. Unknown is not trusted.
func (e *Evaluator) IsTrusted(host string) bool {
	return e.Status(host) == StatusTrusted
}

// ShouldWarn decides whether the one-time advisory is due for host.
func (e *Evaluator) ShouldWarn(host string, alreadyShown bool) bool {
	if alreadyShown {
		return false
	}
	switch e.Status(host) {
	case StatusUntrusted:
		return true
	case StatusUnknown:
		return e.unknownPolicy
	default:
		return false
	}
}

// OfficialAccountManager returns the account manager URL from the cached list.
func (e *Evaluator) OfficialAccountManager() (string, bool) {
	list, ok := e.Sites()
	if !ok || list.OfficialAccountManager == "" {
		return "", false
	}
	return list.OfficialAccountManager, true
}

// Matches reports whether host equals one of domains or is a subdomain of
// one of them.
func Matches(host string, domains []string) bool {
	h := NormalizeHost(host)
	if h == "" {
		return false
	}
	for _, d := range domains {
		d = normalizeDomain(d)
		if d == "" {
			continue
		}
		if h == d || strings.HasSuffix(h, "."+d) {
			return true
		}
	}
	return false
}

// NormalizeHost lower-cases host, drops a trailing dot and converts
// internationalised names to their ASCII form.
func NormalizeHost(host string) string {
	h := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if h == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(h); err == nil {
		return ascii
	}
	return h
}

func normalizeDomain(d string) string {
	d = strings.TrimSpace(d)
	d = strings.TrimPrefix(d, "*.")
	d = strings.TrimPrefix(d, ".")
	return NormalizeHost(d)
}
