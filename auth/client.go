package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/appdock/appdock/sdk/go/transport"
)

// Config controls how the lookup client talks to the identity service.
type Config struct {
	LookupURL string
	// APIKey is appended as the key query parameter when set.
	APIKey    string
	Transport transport.Transport
}

// Client resolves profiles from the identity-lookup service.
type Client struct {
	lookupURL string
	transport transport.Transport
}

// LookupRequest is the body of a profile lookup.
type LookupRequest struct {
	IDToken string `json:"idToken"`
}

// Profile is the subset of the account record the SDK exposes.
type Profile struct {
	DisplayName   string `json:"displayName,omitempty"`
	PhotoURL      string `json:"photoUrl,omitempty"`
	EmailVerified *bool  `json:"emailVerified,omitempty"`
}

// LookupResponse mirrors the identity service response body.
type LookupResponse struct {
	Users []Profile `json:"users"`
}

// ErrNoProfile is returned when the lookup succeeds but names no account.
var ErrNoProfile = errors.New("sdk/auth: lookup returned no account")

// Error conveys HTTP failures from the identity service.
type Error struct {
	Status int
	Body   string
}

func (e Error) Error() string {
	return fmt.Sprintf("sdk/auth: http %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// NewClient constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.LookupURL)
	if base == "" {
		return nil, errors.New("sdk/auth: lookup url required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("sdk/auth: transport required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("sdk/auth: invalid lookup url: %w", err)
	}
	if cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return &Client{lookupURL: u.String(), transport: cfg.Transport}, nil
}

// Lookup resolves the profile behind idToken. The token also authenticates
// the call.
func (c *Client) Lookup(ctx context.Context, idToken string) (Profile, error) {
	if strings.TrimSpace(idToken) == "" {
		return Profile{}, errors.New("sdk/auth: id token required")
	}
	resp, err := c.transport.Send(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.lookupURL,
		Body:   LookupRequest{IDToken: idToken},
	})
	if err != nil {
		return Profile{}, err
	}
	if !resp.OK() {
		return Profile{}, Error{Status: resp.Status, Body: string(resp.Body)}
	}
	var payload LookupResponse
	if err := resp.JSON(&payload); err != nil {
		return Profile{}, fmt.Errorf("sdk/auth: decode lookup response: %w", err)
	}
	if len(payload.Users) == 0 {
		return Profile{}, ErrNoProfile
	}
	return payload.Users[0], nil
}
