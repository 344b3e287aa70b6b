package emojisearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/search" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if _, err := uuid.Parse(r.Header.Get("X-Request-ID")); err != nil {
			t.Errorf("missing request id: %v", err)
		}
		var p SearchParams
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &p); err != nil {
			t.Fatal(err)
		}
		if p.Query != `keyword:"face"` || p.Family != "NOTO" || p.Limit != 5 {
			t.Errorf("unexpected params %+v", p)
		}
		json.NewEncoder(w).Encode(SearchResult{
			Family:  "NOTO",
			Query:   p.Query,
			Count:   1,
			Results: []Emoji{{ID: "e1", CLDR: "grinning face"}},
		})
	}))
	defer ts.Close()

	c := NewClient(Options{ServerURL: ts.URL + "/"})
	res, err := c.Search(context.Background(), SearchParams{Query: `keyword:"face"`, Family: "NOTO", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || len(res.Results) != 1 || res.Results[0].CLDR != "grinning face" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "Unexpected color value: blue"}`))
	}))
	defer ts.Close()

	_, err := NewClient(Options{ServerURL: ts.URL}).Explain(context.Background(), `color:"blue"`)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Unexpected color value: blue" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestReloadSendsToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"invalidated": ["NOTO"], "warmed": false}`))
	}))
	defer ts.Close()

	got, err := NewClient(Options{ServerURL: ts.URL, AdminToken: "tok"}).Reload(context.Background(), false, "NOTO")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "NOTO" {
		t.Errorf("unexpected %v", got)
	}

	_, err = NewClient(Options{ServerURL: ts.URL}).Reload(context.Background(), false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}
