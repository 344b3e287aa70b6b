// Package emojisearch is a client for the emojisearch HTTP API.
package emojisearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Options struct {
	ServerURL string
	// AdminToken is only needed for Reload.
	AdminToken string
	HTTPClient *http.Client
}

type Client struct {
	base       string
	adminToken string
	http       *http.Client
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		base:       strings.TrimRight(opts.ServerURL, "/"),
		adminToken: opts.AdminToken,
		http:       hc,
	}
}

type Swatch struct {
	Hex         string     `json:"hex"`
	RGB         [3]int     `json:"rgb"`
	HSL         [3]float64 `json:"hsl"`
	CIELAB      [3]float64 `json:"CIELAB"`
	Occurrences int        `json:"occurrences"`
}

type Style struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	URL          string   `json:"url"`
	Group        string   `json:"group"`
	IsSvg        bool     `json:"isSvg"`
	ColorPalette []Swatch `json:"colorPalette"`
	Height       *int     `json:"height"`
	Width        *int     `json:"width"`
	X            *int     `json:"x"`
	Y            *int     `json:"y"`
}

type Emoji struct {
	ID            string           `json:"id"`
	CLDR          string           `json:"cldr"`
	Group         string           `json:"group"`
	Keywords      []string         `json:"keywords"`
	TTS           string           `json:"tts"`
	Family        string           `json:"family"`
	FamilyVersion string           `json:"familyVersion"`
	Glyph         string           `json:"glyph"`
	Styles        map[string]Style `json:"styles"`
	DefaultStyle  string           `json:"defaultStyle"`
}

type SearchParams struct {
	Query        string `json:"q"`
	Family       string `json:"family,omitempty"`
	Sort         string `json:"sort,omitempty"`
	GroupByGroup bool   `json:"group_by_group,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

type SearchResult struct {
	Family  string  `json:"family"`
	Query   string  `json:"query"`
	Count   int     `json:"count"`
	Results []Emoji `json:"results"`
	// QueryError is set when the query did not parse. Results then hold the
	// unfiltered catalog.
	QueryError string `json:"query_error,omitempty"`
}

type Family struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Cached bool   `json:"cached"`
}

type FamilyList struct {
	Default  string   `json:"default"`
	Families []Family `json:"families"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("emojisearch: %d %s (request %s)", e.StatusCode, e.Message, e.RequestID)
}

// Search runs a query with POST so long queries need no URL encoding.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out SearchResult
	if err := c.do(ctx, http.MethodPost, "/api/search", nil, bytes.NewReader(body), false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Explain returns the server's parsed form of query.
func (c *Client) Explain(ctx context.Context, query string) (string, error) {
	var out struct {
		Tree string `json:"tree"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/explain", url.Values{"q": {query}}, nil, false, &out); err != nil {
		return "", err
	}
	return out.Tree, nil
}

// Emoji fetches one emoji by family and CLDR name.
func (c *Client) Emoji(ctx context.Context, family, cldr string) (*Emoji, error) {
	var out Emoji
	path := "/api/emojis/" + url.PathEscape(family) + "/" + url.PathEscape(cldr)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Families(ctx context.Context) (*FamilyList, error) {
	var out FamilyList
	if err := c.do(ctx, http.MethodGet, "/api/families", nil, nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reload drops the server's cached catalogs. No families means all of them.
func (c *Client) Reload(ctx context.Context, warm bool, families ...string) ([]string, error) {
	req := map[string]any{"warm": warm}
	if len(families) > 0 {
		req["families"] = families
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out struct {
		Invalidated []string `json:"invalidated"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/reload", nil, bytes.NewReader(body), true, &out); err != nil {
		return nil, err
	}
	return out.Invalidated, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, admin bool, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID, Message: strconv.Quote(string(data))}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	return json.Unmarshal(data, out)
}
