package sdk

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appdock/appdock/sdk/go/transport"
	"github.com/appdock/appdock/sdk/go/trust"
)

const sitesBody = `{"trustedSites":["example.com"],"officialAccountManager":"https://accounts.example.com/manage"}`

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{})
	assert.True(t, IsConfiguration(err), "missing environment: %v", err)

	env, err := NewMemoryEnvironment("https://app.example.com/")
	require.NoError(t, err)
	_, err = NewClient(Config{Environment: env, BaseURL: "api.test"})
	assert.ErrorContains(t, err, "missing scheme")
	_, err = NewClient(Config{Environment: env, BaseURL: "https://"})
	assert.ErrorContains(t, err, "missing host")
	_, err = NewClient(Config{Environment: env, DocumentsURL: "::bad"})
	assert.Error(t, err)

	client, err := NewClient(Config{Environment: env})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL+"/account", client.AccountManagerURL())
}

func TestInitializeRejectsInvalidAppIDs(t *testing.T) {
	for _, id := range []string{"", "a/b", "..", ".", "with space", "ümlaut", "x?y", "a#b"} {
		tr := newRouteTransport()
		client, _ := newTestClient(t, "https://app.example.com/#token="+makeToken(t, map[string]any{"sub": "u1"}), tr)
		err := client.Initialize(context.Background(), id)
		assert.True(t, IsConfiguration(err), "%q: %v", id, err)
		assert.False(t, client.IsAuthenticated(), id)
		assert.Empty(t, client.AppID(), id)
		assert.Zero(t, len(tr.callsTo(http.MethodGet, "/trusted-sites.json")), id)
	}
}

func TestValidateAppIDAcceptsAllowedCharacters(t *testing.T) {
	for _, id := range []string{"notes", "my.app-2_beta", "A", "...", "-"} {
		got, err := ValidateAppID(id)
		require.NoError(t, err, id)
		assert.Equal(t, AppID(id), got)
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	client, _ := newTestClient(t, "https://app.example.com/", newRouteTransport())
	require.NoError(t, client.Initialize(context.Background(), "notes"))
	err := client.Initialize(context.Background(), "other")
	assert.True(t, IsConfiguration(err))
	assert.Equal(t, AppID("notes"), client.AppID())
}

func TestWaitTrustBeforeInitialize(t *testing.T) {
	client, _ := newTestClient(t, "https://app.example.com/", newRouteTransport())
	assert.True(t, IsConfiguration(client.WaitTrust(context.Background())))
}

func TestWaitTrustHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	tr := newRouteTransport().handle(http.MethodGet, "/trusted-sites.json", func(transport.Request) (*transport.Response, error) {
		<-release
		return &transport.Response{Status: http.StatusOK, Body: []byte(sitesBody)}, nil
	})
	client, _ := newTestClient(t, "https://app.example.com/", tr)
	require.NoError(t, client.Initialize(context.Background(), "notes"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, client.WaitTrust(ctx), context.DeadlineExceeded)
	assert.Equal(t, trust.StatusUnknown, client.TrustStatus())
}

func TestTrustedOriginShowsNoAdvisory(t *testing.T) {
	tr := newRouteTransport().respond(http.MethodGet, "/trusted-sites.json", http.StatusOK, sitesBody)
	client, env := newTestClient(t, "https://app.example.com/", tr)
	require.NoError(t, client.Initialize(context.Background(), "notes"))
	require.NoError(t, client.WaitTrust(context.Background()))

	assert.Equal(t, trust.StatusTrusted, client.TrustStatus())
	assert.Empty(t, env.Notices())
}

func TestTrustSurvivesCacheExpiry(t *testing.T) {
	var fetches atomic.Int32
	tr := newRouteTransport().handle(http.MethodGet, "/trusted-sites.json", func(transport.Request) (*transport.Response, error) {
		if fetches.Add(1) == 1 {
			return &transport.Response{Status: http.StatusOK, Header: http.Header{}, Body: []byte(sitesBody)}, nil
		}
		return &transport.Response{Status: http.StatusServiceUnavailable, Header: http.Header{}}, nil
	})
	client, env := newTestClient(t, "https://app.example.com/", tr, func(cfg *Config) {
		cfg.TrustCacheTTL = 30 * time.Millisecond
		cfg.AccountManagerURL = "https://fallback.example.com/account"
	})
	require.NoError(t, client.Initialize(context.Background(), "notes"))
	require.NoError(t, client.WaitTrust(context.Background()))
	require.Equal(t, trust.StatusTrusted, client.TrustStatus())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, trust.StatusTrusted, client.TrustStatus())
	assert.Equal(t, "https://accounts.example.com/manage", client.AccountManagerURL())
	assert.GreaterOrEqual(t, fetches.Load(), int32(2))
	assert.Empty(t, env.Notices())
}

func TestUntrustedOriginAdvisoryShownOncePerSession(t *testing.T) {
	tr := newRouteTransport().respond(http.MethodGet, "/trusted-sites.json", http.StatusOK, sitesBody)
	client, env := newTestClient(t, "https://app.other.com/", tr)
	require.NoError(t, client.Initialize(context.Background(), "notes"))
	require.NoError(t, client.WaitTrust(context.Background()))

	assert.Equal(t, trust.StatusUntrusted, client.TrustStatus())
	notices := env.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeUntrustedSite, notices[0].Kind)
	assert.Equal(t, "app.other.com", notices[0].Host)
	assert.Equal(t, "https://accounts.example.com/manage", notices[0].AccountManagerURL)
	assert.True(t, notices[0].Dismissible)
	assert.True(t, env.SessionFlag(untrustedWarningFlag))

	again, err := NewClient(Config{BaseURL: testBaseURL, Environment: env, Transport: tr})
	require.NoError(t, err)
	require.NoError(t, again.Initialize(context.Background(), "notes"))
	require.NoError(t, again.WaitTrust(context.Background()))
	assert.Len(t, env.Notices(), 1)
}

func TestUntrustedOriginDoesNotBlockSignIn(t *testing.T) {
	tr := newRouteTransport().respond(http.MethodGet, "/trusted-sites.json", http.StatusOK, sitesBody)
	token := makeToken(t, map[string]any{"sub": "u1"})
	client, env := newTestClient(t, "https://evil.test/#token="+token, tr)
	require.NoError(t, client.Initialize(context.Background(), "notes"))
	require.NoError(t, client.WaitTrust(context.Background()))

	assert.True(t, client.IsAuthenticated())
	assert.Len(t, env.Notices(), 1)
}

func TestUnknownTrustPolicy(t *testing.T) {
	tr := newRouteTransport().respond(http.MethodGet, "/trusted-sites.json", http.StatusServiceUnavailable, ``)

	quiet, quietEnv := newTestClient(t, "https://app.example.com/", tr)
	require.NoError(t, quiet.Initialize(context.Background(), "notes"))
	require.NoError(t, quiet.WaitTrust(context.Background()))
	assert.Equal(t, trust.StatusUnknown, quiet.TrustStatus())
	assert.Empty(t, quietEnv.Notices())

	strict, strictEnv := newTestClient(t, "https://app.example.com/", tr, func(cfg *Config) {
		cfg.TreatUnknownOriginAsUntrusted = true
	})
	require.NoError(t, strict.Initialize(context.Background(), "notes"))
	require.NoError(t, strict.WaitTrust(context.Background()))
	notices := strictEnv.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, testBaseURL+"/account", notices[0].AccountManagerURL)
}

func TestRedirectToLogin(t *testing.T) {
	client, env := newTestClient(t, "https://app.example.com/page?tab=2", newRouteTransport())

	client.RedirectToLogin("")
	client.RedirectToLogin("https://app.example.com/after")

	navs := env.Navigations()
	require.Len(t, navs, 2)
	first, err := url.Parse(navs[0])
	require.NoError(t, err)
	assert.Equal(t, "api.test", first.Host)
	assert.Equal(t, "/login", first.Path)
	assert.Equal(t, "https://app.example.com/page?tab=2", first.Query().Get("redirect"))
	second, err := url.Parse(navs[1])
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/after", second.Query().Get("redirect"))
}

func TestLoginURLOverride(t *testing.T) {
	client, _ := newTestClient(t, "https://app.example.com/", newRouteTransport(), func(cfg *Config) {
		cfg.LoginURL = "https://id.example.com/signin?lang=en"
	})
	u, err := url.Parse(client.LoginURL("https://app.example.com/x"))
	require.NoError(t, err)
	assert.Equal(t, "id.example.com", u.Host)
	assert.Equal(t, "en", u.Query().Get("lang"))
	assert.Equal(t, "https://app.example.com/x", u.Query().Get("redirect"))
}

func TestOpenAccountManagerPrefersOfficialURL(t *testing.T) {
	client, env := newTestClient(t, "https://app.example.com/", newRouteTransport(), func(cfg *Config) {
		cfg.AccountManagerURL = "https://fallback.example.com/account"
	})
	client.OpenAccountManager()

	tr := newRouteTransport().respond(http.MethodGet, "/trusted-sites.json", http.StatusOK, sitesBody)
	official, officialEnv := newTestClient(t, "https://app.example.com/", tr, func(cfg *Config) {
		cfg.AccountManagerURL = "https://fallback.example.com/account"
	})
	require.NoError(t, official.Initialize(context.Background(), "notes"))
	require.NoError(t, official.WaitTrust(context.Background()))
	official.OpenAccountManager()

	assert.Equal(t, []string{"https://fallback.example.com/account"}, env.Navigations())
	assert.Equal(t, []string{"https://accounts.example.com/manage"}, officialEnv.Navigations())
}

func TestTelemetryRecordsLatencyForDefaultTransport(t *testing.T) {
	var metrics []Metric
	tel := telemetry{hooks: TelemetryHooks{OnMetric: func(_ context.Context, m Metric) {
		metrics = append(metrics, m)
	}}}
	hooks := tel.transportHooks()
	req, err := http.NewRequest(http.MethodGet, "https://api.test/trusted-sites.json", nil)
	require.NoError(t, err)
	hooks.OnRequest(context.Background(), req)
	hooks.OnResponse(context.Background(), req, nil, nil, 15*time.Millisecond)

	require.Len(t, metrics, 1)
	assert.Equal(t, "sdk_http_request_latency_ms", metrics[0].Name)
	assert.Equal(t, float64(15), metrics[0].Value)
	assert.Equal(t, "/trusted-sites.json", metrics[0].Labels["path"])
}
