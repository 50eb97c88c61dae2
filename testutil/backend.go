// Package testutil provides an in-process fake of the identity, trust and
// document services for SDK tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/appdock/appdock/sdk/go/auth"
	"github.com/appdock/appdock/sdk/go/document"
	"github.com/appdock/appdock/sdk/go/routes"
	"github.com/appdock/appdock/sdk/go/trust"
)

// RecordedRequest is a request the backend received.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	Body          []byte
	Status        int
}

// Backend serves the trusted sites list, profile lookups and per-app user
// documents from memory.
type Backend struct {
	server *httptest.Server

	mu       sync.Mutex
	sites    *trust.SiteList
	profiles map[string]auth.Profile
	docs     map[string]document.Fields
	requests []RecordedRequest
}

// NewBackend starts a backend. Call Close when done.
func NewBackend() *Backend {
	b := &Backend{
		profiles: make(map[string]auth.Profile),
		docs:     make(map[string]document.Fields),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.record)
	r.Get(routes.TrustedSites, b.handleSites)
	r.Post(routes.AccountsLookup, b.handleLookup)
	r.Group(func(r chi.Router) {
		r.Use(requireBearer)
		r.Get(routes.UserAppDocument, b.handleGetDocument)
		r.Patch(routes.UserAppDocument, b.handlePatchDocument)
		r.Delete(routes.UserAppDocument, b.handleDeleteDocument)
	})
	b.server = httptest.NewServer(r)
	return b
}

// URL is the backend base URL.
func (b *Backend) URL() string { return b.server.URL }

// Client returns an HTTP client for the backend.
func (b *Backend) Client() *http.Client { return b.server.Client() }

// Close shuts the backend down.
func (b *Backend) Close() { b.server.Close() }

// SetSites publishes a trusted sites list. Until it is called the list
// endpoint answers 503.
func (b *Backend) SetSites(list trust.SiteList) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sites = &list
}

// SetProfile registers the profile returned for idToken.
func (b *Backend) SetProfile(idToken string, p auth.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles[idToken] = p
}

// PutDocument stores fields for uid and appID directly.
func (b *Backend) PutDocument(uid, appID string, fields document.Fields) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[docKey(uid, appID)] = cloneFields(fields)
}

// Document returns the stored fields for uid and appID.
func (b *Backend) Document(uid, appID string) (document.Fields, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fields, ok := b.docs[docKey(uid, appID)]
	return cloneFields(fields), ok
}

// Requests returns the requests received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

func docKey(uid, appID string) string { return uid + "/" + appID }

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			data, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
				return
			}
			body = data
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
			Status:        ww.Status(),
		})
		b.mu.Unlock()
	})
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleSites(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	sites := b.sites
	b.mu.Unlock()
	if sites == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "trusted sites list not published")
		return
	}
	writeJSON(w, http.StatusOK, sites)
}

func (b *Backend) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req auth.LookupRequest
	if err := json.Unmarshal(bodyOf(r), &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid lookup body")
		return
	}
	b.mu.Lock()
	profile, ok := b.profiles[req.IDToken]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ID_TOKEN", "unknown id token")
		return
	}
	writeJSON(w, http.StatusOK, auth.LookupResponse{Users: []auth.Profile{profile}})
}

func (b *Backend) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	uid, appID := pathParams(r)
	fields, ok := b.Document(uid, appID)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "document not found")
		return
	}
	writeJSON(w, http.StatusOK, document.Document{Name: documentName(uid, appID), Fields: fields})
}

func (b *Backend) handlePatchDocument(w http.ResponseWriter, r *http.Request) {
	uid, appID := pathParams(r)
	var incoming document.Document
	if err := json.Unmarshal(bodyOf(r), &incoming); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	mask := r.URL.Query()["updateMask.fieldPaths"]

	b.mu.Lock()
	key := docKey(uid, appID)
	stored := incoming.Fields
	if len(mask) > 0 {
		stored = cloneFields(b.docs[key])
		for _, path := range mask {
			name := unquoteFieldPath(path)
			if f, ok := incoming.Fields.Get(name); ok {
				stored.Set(name, f)
			} else {
				stored.Delete(name)
			}
		}
	}
	b.docs[key] = stored
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, document.Document{Name: documentName(uid, appID), Fields: stored})
}

func (b *Backend) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	uid, appID := pathParams(r)
	key := docKey(uid, appID)
	b.mu.Lock()
	_, ok := b.docs[key]
	delete(b.docs, key)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "document not found")
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func pathParams(r *http.Request) (string, string) {
	uid, err := url.PathUnescape(chi.URLParam(r, "uid"))
	if err != nil {
		uid = chi.URLParam(r, "uid")
	}
	appID, err := url.PathUnescape(chi.URLParam(r, "app_id"))
	if err != nil {
		appID = chi.URLParam(r, "app_id")
	}
	return uid, appID
}

func bodyOf(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	data, _ := io.ReadAll(r.Body)
	return data
}

func cloneFields(in document.Fields) document.Fields {
	var out document.Fields
	for _, name := range in.Names() {
		f, _ := in.Get(name)
		out.Set(name, f)
	}
	return out
}

func documentName(uid, appID string) string {
	return fmt.Sprintf("projects/test/databases/(default)/documents/users/%s/apps/%s", uid, appID)
}

func unquoteFieldPath(path string) string {
	inner, ok := strings.CutPrefix(path, "`")
	if !ok {
		return path
	}
	inner = strings.TrimSuffix(inner, "`")
	return strings.NewReplacer("\\`", "`", `\\`, `\`).Replace(inner)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	payload.Error.Code = status
	payload.Error.Message = message
	payload.Error.Status = code
	writeJSON(w, status, payload)
}
