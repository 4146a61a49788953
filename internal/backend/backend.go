// Package backend fetches company score records from the dashboard REST backend.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TechnoServe/mfiscore/internal/redact"
	"github.com/TechnoServe/mfiscore/internal/score"
)

const (
	companiesPath  = "/companies"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Client reads company records over HTTP.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client = &http.Client{Timeout: d}
		}
	}
}

// New creates a client for the backend at baseURL. token, when set, is sent
// as a bearer token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base URL %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "backend" }

// Records fetches the companies of cycle. An empty cycle asks the backend
// for its current cycle.
func (c *Client) Records(ctx context.Context, cycle string) ([]score.Record, error) {
	endpoint := c.baseURL + companiesPath
	if cycle != "" {
		endpoint += "?" + url.Values{"cycle": {cycle}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("backend: API returned %d: %s", resp.StatusCode, redact.Redact(string(body)))
	}

	companies, err := decodeCompanies(body)
	if err != nil {
		return nil, fmt.Errorf("backend: parse response: %w", err)
	}

	records := make([]score.Record, 0, len(companies))
	for _, cp := range companies {
		r := cp.record()
		if r.CycleID == "" {
			r.CycleID = cycle
		}
		records = append(records, r)
	}
	return records, nil
}

// decodeCompanies accepts a bare array or an object wrapping it under
// "companies" or "data".
func decodeCompanies(body []byte) ([]companyPayload, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var out []companyPayload
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var env struct {
		Companies []companyPayload `json:"companies"`
		Data      []companyPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Companies != nil {
		return env.Companies, nil
	}
	return env.Data, nil
}

type companyPayload struct {
	ID           string         `json:"id"`
	CompanyID    string         `json:"companyId"`
	Name         string         `json:"name"`
	CompanyName  string         `json:"companyName"`
	Tier         string         `json:"tier"`
	CycleID      string         `json:"cycleId"`
	SatScores    []scorePayload `json:"satScores"`
	IvcScores    []scorePayload `json:"ivcScores"`
	IegScores    []scorePayload `json:"iegScores"`
	ProductTests []productTest  `json:"productTests"`
}

type scorePayload struct {
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Score    flexFloat `json:"score"`
}

type productTest struct {
	Fortification struct {
		Score flexFloat `json:"score"`
	} `json:"fortification"`
}

func (cp companyPayload) record() score.Record {
	r := score.Record{
		CompanyID: firstNonEmpty(cp.ID, cp.CompanyID),
		Name:      firstNonEmpty(cp.Name, cp.CompanyName),
		Tier:      score.Tier(cp.Tier),
		CycleID:   cp.CycleID,
		Self:      entries(cp.SatScores),
		Validated: entries(cp.IvcScores),
		Expert:    entries(cp.IegScores),
	}
	if len(cp.ProductTests) > 0 {
		r.ProductTest = cp.ProductTests[0].Fortification.Score.v
	}
	return r
}

// entries keeps only pairs naming a known category. Matching is exact.
func entries(in []scorePayload) []score.Entry {
	var out []score.Entry
	for _, p := range in {
		c := score.Category(firstNonEmpty(p.Category, p.Name))
		if !c.Valid() {
			continue
		}
		out = append(out, score.Entry{Category: c, Score: p.Score.v})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
