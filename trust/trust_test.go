package trust

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdock/appdock/sdk/go/transport"
)

func newEvaluator(t *testing.T, tr transport.Transport, cfg Config) *Evaluator {
	t.Helper()
	cfg.Transport = tr
	if cfg.ListURL == "" {
		cfg.ListURL = "https://id.example.net/trusted-sites.json"
	}
	e, err := NewEvaluator(cfg)
	require.NoError(t, err)
	return e
}

func TestSuffixMatching(t *testing.T) {
	assert.True(t, Matches("app.example.com", []string{"example.com"}))
	assert.True(t, Matches("example.com", []string{"example.com"}))
	assert.False(t, Matches("app.example.com", []string{"other.com"}))
	assert.False(t, Matches("badexample.com", []string{"example.com"}), "suffix must start at a label boundary")
	assert.True(t, Matches("APP.Example.COM.", []string{" *.example.com "}))
	assert.False(t, Matches("", []string{"example.com"}))
	assert.False(t, Matches("example.com", []string{"", "."}))
	assert.True(t, Matches("shop.bücher.de", []string{"xn--bcher-kva.de"}))
}

func TestRefreshCachesList(t *testing.T) {
	mock := transport.NewMock().WithResponse(http.StatusOK, SiteList{
		TrustedSites:           []string{"example.com", "Partner.ORG"},
		OfficialAccountManager: "https://accounts.example.net/",
	})
	e := newEvaluator(t, mock, Config{})

	assert.Equal(t, StatusUnknown, e.Status("app.example.com"))
	e.Refresh(context.Background())

	assert.Equal(t, StatusTrusted, e.Status("app.example.com"))
	assert.True(t, e.IsTrusted("partner.org"))
	assert.Equal(t, StatusUntrusted, e.Status("evil.test"))

	manager, ok := e.OfficialAccountManager()
	assert.True(t, ok)
	assert.Equal(t, "https://accounts.example.net/", manager)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
}

func TestRefreshFailureIsAbsorbed(t *testing.T) {
	cases := map[string]*transport.Mock{
		"network": transport.NewMock().WithError(errors.New("offline")),
		"status":  transport.NewMock().WithResponse(http.StatusServiceUnavailable, nil),
		"body":    transport.NewMock().WithResponse(http.StatusOK, "not json"),
	}
	for name, mock := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEvaluator(t, mock, Config{})
			e.Refresh(context.Background())
			assert.Equal(t, StatusUnknown, e.Status("app.example.com"))
			assert.False(t, e.IsTrusted("app.example.com"))
		})
	}
}

func TestFailedRefreshKeepsPreviousList(t *testing.T) {
	mock := transport.NewMock().
		WithResponse(http.StatusOK, SiteList{TrustedSites: []string{"example.com"}}).
		WithError(errors.New("offline"))
	e := newEvaluator(t, mock, Config{})

	e.Refresh(context.Background())
	e.Refresh(context.Background())
	assert.Equal(t, StatusTrusted, e.Status("example.com"))
}

func TestShouldWarn(t *testing.T) {
	e := newEvaluator(t, transport.NewMock(), Config{})
	assert.False(t, e.ShouldWarn("app.example.com", false), "unknown does not warn by default")

	strict := newEvaluator(t, transport.NewMock(), Config{TreatUnknownAsUntrusted: true})
	assert.True(t, strict.ShouldWarn("app.example.com", false))

	e.Store(SiteList{TrustedSites: []string{"other.com"}})
	assert.True(t, e.ShouldWarn("app.example.com", false))
	assert.False(t, e.ShouldWarn("app.example.com", true), "advisory is shown once")
	assert.False(t, e.ShouldWarn("www.other.com", false))
}

func TestExpiredListIsFetchedAgain(t *testing.T) {
	mock := transport.NewMock().
		WithResponse(http.StatusOK, SiteList{TrustedSites: []string{"example.com"}}).
		WithResponse(http.StatusOK, SiteList{TrustedSites: []string{"example.com", "partner.org"}})
	e := newEvaluator(t, mock, Config{TTL: 50 * time.Millisecond})
	e.Refresh(context.Background())
	assert.Equal(t, StatusTrusted, e.Status("example.com"))
	assert.Equal(t, StatusUntrusted, e.Status("partner.org"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StatusTrusted, e.Status("example.com"))
	assert.Equal(t, StatusTrusted, e.Status("partner.org"))
	assert.Equal(t, 2, mock.CallCount())
}

func TestExpiredListSurvivesFailedFetch(t *testing.T) {
	mock := transport.NewMock().
		WithResponse(http.StatusOK, SiteList{
			TrustedSites:           []string{"example.com"},
			OfficialAccountManager: "https://accounts.example.net/",
		}).
		WithResponse(http.StatusServiceUnavailable, nil)
	e := newEvaluator(t, mock, Config{TTL: 50 * time.Millisecond})
	e.Refresh(context.Background())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StatusTrusted, e.Status("example.com"))
	manager, ok := e.OfficialAccountManager()
	assert.True(t, ok)
	assert.Equal(t, "https://accounts.example.net/", manager)
	assert.GreaterOrEqual(t, mock.CallCount(), 2)
}

func TestStoredListOutlivesTTLWithoutListURL(t *testing.T) {
	e, err := NewEvaluator(Config{TTL: 20 * time.Millisecond})
	require.NoError(t, err)
	e.Store(SiteList{TrustedSites: []string{"example.com"}})

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StatusTrusted, e.Status("example.com"))
}

func TestNoListURL(t *testing.T) {
	e, err := NewEvaluator(Config{})
	require.NoError(t, err)
	e.Refresh(context.Background())
	assert.Equal(t, StatusUnknown, e.Status("example.com"))

	_, err = NewEvaluator(Config{ListURL: "https://x"})
	assert.Error(t, err, "a list URL needs a transport")
}
