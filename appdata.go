package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/appdock/appdock/sdk/go/document"
	"github.com/appdock/appdock/sdk/go/routes"
	"github.com/appdock/appdock/sdk/go/transport"
)

// MaxDocumentBytes bounds the encoded request body of a write.
const MaxDocumentBytes = 10 * 1024

const (
	opGet     = "get"
	opMerge   = "merge"
	opReplace = "replace"
	opDelete  = "delete"
)

// appDataStore reads and writes the document at
// users/{uid}/apps/{appId}. The uid and token come from the sealed session
// at call time.
type appDataStore struct {
	baseURL   string
	apiKey    string
	transport transport.Transport
	session   *Session
	tel       telemetry
	appID     func() AppID
}

type target struct {
	url   string
	token string
}

func (s *appDataStore) resolve(op string) (target, error) {
	id, token, ok := s.session.credentials()
	if !ok {
		return target{}, &PreconditionError{Op: op, Reason: "no signed-in user"}
	}
	appID := s.appID()
	if appID == "" {
		return target{}, &PreconditionError{Op: op, Reason: "application id not configured"}
	}
	path := strings.NewReplacer(
		"{uid}", url.PathEscape(id.UID()),
		"{app_id}", url.PathEscape(string(appID)),
	).Replace(routes.UserAppDocument)
	return target{url: s.baseURL + path, token: token}, nil
}

func (s *appDataStore) withQuery(raw string, q url.Values) string {
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}
	if len(q) == 0 {
		return raw
	}
	return raw + "?" + q.Encode()
}

// Get returns the stored document, or an empty map when none exists.
func (s *appDataStore) Get(ctx context.Context) (*document.Map, error) {
	t, err := s.resolve(opGet)
	if err != nil {
		return nil, err
	}
	resp, err := s.transport.Send(ctx, transport.Request{
		Method:      http.MethodGet,
		URL:         s.withQuery(t.url, url.Values{}),
		BearerToken: t.token,
	})
	if err != nil {
		return nil, &StoreError{Op: opGet, Err: err}
	}
	if resp.Status == http.StatusNotFound {
		return document.NewMap(), nil
	}
	if !resp.OK() {
		return nil, newStoreError(opGet, resp)
	}
	var doc document.Document
	if err := resp.JSON(&doc); err != nil {
		return nil, &StoreError{Op: opGet, Status: resp.Status, Err: fmt.Errorf("decode document: %w", err)}
	}
	m, err := document.Decode(doc.Fields)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Merge updates only the top-level keys present in patch.
func (s *appDataStore) Merge(ctx context.Context, patch *document.Map) error {
	t, err := s.resolve(opMerge)
	if err != nil {
		return err
	}
	if patch == nil || patch.Len() == 0 {
		// An empty update mask would replace the whole document.
		s.tel.log(ctx, LogLevelDebug, "empty app data patch skipped", nil, nil)
		return nil
	}
	q := url.Values{}
	for _, key := range patch.Keys() {
		q.Add("updateMask.fieldPaths", quoteFieldPath(key))
	}
	return s.write(ctx, opMerge, t, patch, q)
}

// Replace overwrites the whole document with doc.
func (s *appDataStore) Replace(ctx context.Context, doc *document.Map) error {
	t, err := s.resolve(opReplace)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = document.NewMap()
	}
	return s.write(ctx, opReplace, t, doc, url.Values{})
}

func (s *appDataStore) write(ctx context.Context, op string, t target, m *document.Map, q url.Values) error {
	body, err := encodeDocumentBody(op, m)
	if err != nil {
		return err
	}
	resp, err := s.transport.Send(ctx, transport.Request{
		Method:      http.MethodPatch,
		URL:         s.withQuery(t.url, q),
		Body:        json.RawMessage(body),
		BearerToken: t.token,
	})
	if err != nil {
		return &StoreError{Op: op, Err: err}
	}
	if !resp.OK() {
		return newStoreError(op, resp)
	}
	s.tel.metric(ctx, "sdk_app_data_write_bytes", float64(len(body)), map[string]string{"op": op})
	return nil
}

// Delete removes the document. A missing document is not an error.
func (s *appDataStore) Delete(ctx context.Context) error {
	t, err := s.resolve(opDelete)
	if err != nil {
		return err
	}
	resp, err := s.transport.Send(ctx, transport.Request{
		Method:      http.MethodDelete,
		URL:         s.withQuery(t.url, url.Values{}),
		BearerToken: t.token,
	})
	if err != nil {
		return &StoreError{Op: opDelete, Err: err}
	}
	if resp.Status == http.StatusNotFound || resp.OK() {
		return nil
	}
	return newStoreError(opDelete, resp)
}

// encodeDocumentBody renders m as a write body and enforces MaxDocumentBytes.
func encodeDocumentBody(op string, m *document.Map) ([]byte, error) {
	body, err := json.Marshal(document.Document{Fields: document.EncodeMap(m)})
	if err != nil {
		return nil, fmt.Errorf("sdk: encode %s body: %w", op, err)
	}
	if len(body) > MaxDocumentBytes {
		return nil, &SizeLimitError{Op: op, Size: len(body), Limit: MaxDocumentBytes}
	}
	return body, nil
}
