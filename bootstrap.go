package sdk

import (
	"context"

	"github.com/appdock/appdock/sdk/go/auth"
)

// State is a step of session bootstrap.
type State int

const (
	StateNoToken State = iota
	StateTokenPresent
	StatePayloadDecoded
	StateProfileEnriched
	StateSealed
	// StateFailed is terminal: the token was present but unusable.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateTokenPresent:
		return "token_present"
	case StatePayloadDecoded:
		return "payload_decoded"
	case StateProfileEnriched:
		return "profile_enriched"
	case StateSealed:
		return "sealed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome records how bootstrap ended. Err is the absorbed cause, kept for
// diagnostics; bootstrap never fails Initialize.
type Outcome struct {
	State    State
	Identity Identity
	// Enriched is true when the profile lookup succeeded.
	Enriched bool
	Err      error
}

// profileLookup is satisfied by *auth.Client.
type profileLookup interface {
	Lookup(ctx context.Context, idToken string) (auth.Profile, error)
}

type bootstrapper struct {
	env     Environment
	lookup  profileLookup
	session *Session
	tel     telemetry
}

// run consumes the token in the current URL fragment, if any, and seals the
// resulting identity into the session.
func (b bootstrapper) run(ctx context.Context) Outcome {
	loc := b.env.Location()
	if loc == nil {
		return Outcome{State: StateNoToken}
	}
	token, ok := ExtractToken(loc.Fragment)
	if !ok {
		b.tel.log(ctx, LogLevelDebug, "no bearer token in location", nil, nil)
		return Outcome{State: StateNoToken}
	}
	if token == "" {
		err := auth.ErrMalformedToken
		b.tel.log(ctx, LogLevelWarn, "bearer token parameter is empty", err, nil)
		return Outcome{State: StateFailed, Err: err}
	}

	claims, err := auth.DecodeUnverified(token)
	if err != nil {
		b.tel.log(ctx, LogLevelWarn, "bearer token payload rejected", err, nil)
		return Outcome{State: StateFailed, Err: err}
	}
	out := Outcome{State: StatePayloadDecoded, Identity: identityFromClaims(claims)}

	if b.lookup != nil {
		profile, err := b.lookup.Lookup(ctx, token)
		if err != nil {
			out.Err = err
			b.tel.log(ctx, LogLevelWarn, "profile enrichment failed", err, map[string]any{
				"uid": out.Identity.UID(),
			})
		} else {
			out.Identity = out.Identity.withProfile(profile)
			out.Enriched = true
			out.State = StateProfileEnriched
		}
	}

	b.session.seal(out.Identity, token)
	b.env.ReplaceURL(scrubbedURL(loc))
	out.State = StateSealed
	b.tel.log(ctx, LogLevelInfo, "session sealed", nil, map[string]any{
		"uid":      out.Identity.UID(),
		"enriched": out.Enriched,
	})
	return out
}
