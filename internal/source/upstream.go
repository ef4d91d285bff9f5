package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"attendboard/internal/auth"
	"attendboard/internal/reconcile"
)

// Upstream fetches snapshots from a remote students API.
type Upstream struct {
	BaseURL     string
	HTTP        *http.Client
	Credentials auth.CredentialProvider
}

// NewUpstream creates a client with the given timeout.
func NewUpstream(baseURL string, creds auth.CredentialProvider, timeout time.Duration) *Upstream {
	if creds == nil {
		creds = auth.StaticToken("")
	}
	return &Upstream{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTP:        &http.Client{Timeout: timeout},
		Credentials: creds,
	}
}

// upstreamPayload accepts either a bare student list or an object with
// students and optional stats.
type upstreamPayload struct {
	reconcile.Snapshot
}

// DecodeSnapshot reads a students payload in any shape the upstream API
// returns it.
func DecodeSnapshot(data []byte) (reconcile.Snapshot, error) {
	var payload upstreamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return reconcile.Snapshot{}, err
	}
	return payload.Snapshot, nil
}

func (p *upstreamPayload) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &p.Students)
	}
	var obj struct {
		Students []reconcile.RawStudent `json:"students"`
		Data     []reconcile.RawStudent `json:"data"`
		Stats    *reconcile.ServerStats `json:"stats"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Students = obj.Students
	if p.Students == nil {
		p.Students = obj.Data
	}
	p.Stats = obj.Stats
	return nil
}

// Fetch calls GET {BaseURL}/students?date=YYYY-MM-DD[&limit=&offset=].
func (u *Upstream) Fetch(ctx context.Context, opts FetchOptions) (reconcile.Snapshot, error) {
	const op = "upstream fetch"

	q := url.Values{}
	q.Set("date", opts.Date.String())
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.BaseURL+"/students?"+q.Encode(), nil)
	if err != nil {
		return reconcile.Snapshot{}, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	token, err := u.Credentials.Token(ctx)
	if err != nil {
		return reconcile.Snapshot{}, fmt.Errorf("%s: credentials: %w", op, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return reconcile.Snapshot{}, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return reconcile.Snapshot{}, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode >= 300 {
		return reconcile.Snapshot{}, &ServerError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	snap, err := DecodeSnapshot(body)
	if err != nil {
		return reconcile.Snapshot{}, &ServerError{Op: op, StatusCode: resp.StatusCode, Body: "decode: " + err.Error()}
	}
	return snap, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
