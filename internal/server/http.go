package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coffersTech/emojisearch/internal/catalog"
	"github.com/coffersTech/emojisearch/internal/engine"
	"github.com/coffersTech/emojisearch/internal/logging"
	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/pkg/emojiql"
	"github.com/valyala/fastjson"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 1 << 20

// Catalog is the part of the catalog repository the server needs.
type Catalog interface {
	All(ctx context.Context, family model.Family) ([]model.Emoji, error)
	Get(ctx context.Context, family model.Family, cldr string) (model.Emoji, error)
	Invalidate(families ...model.Family)
	Warm(ctx context.Context, families ...model.Family) error
	Cached() []model.Family
}

// Options tunes a SearchServer.
type Options struct {
	DefaultFamily model.Family
	// AdminTokenHash is a bcrypt hash. Empty disables /api/admin/reload.
	AdminTokenHash string
	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

type SearchServer struct {
	engine  *engine.SearchEngine
	catalog Catalog
	opts    Options
	logger  *logging.Logger
	limiter *clientLimiter
	srv     *http.Server
	parser  fastjson.ParserPool
	started time.Time

	requestCounter int64
}

func NewSearchServer(se *engine.SearchEngine, c Catalog, opts Options, logger *logging.Logger) *SearchServer {
	if logger == nil {
		logger = logging.NoopLogger()
	}
	if !opts.DefaultFamily.Valid() {
		opts.DefaultFamily = model.FamilyFluentUI
	}
	s := &SearchServer{
		engine:  se,
		catalog: c,
		opts:    opts,
		logger:  logger,
		started: time.Now(),
	}
	if opts.RateLimit > 0 {
		s.limiter = newClientLimiter(opts.RateLimit, opts.RateBurst)
	}
	return s
}

// Handler returns the API with its middleware applied.
func (s *SearchServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/facets", s.handleFacets)
	mux.HandleFunc("/api/explain", s.handleExplain)
	mux.HandleFunc("/api/emojis/", s.handleEmoji)
	mux.HandleFunc("/api/families", s.handleFamilies)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.Handle("/api/admin/reload", s.AdminMiddleware(http.HandlerFunc(s.handleReload)))

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.RateLimitMiddleware(h)
	}
	return s.RequestIDMiddleware(h)
}

// Start runs the HTTP server.
func (s *SearchServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *SearchServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

type searchResponse struct {
	Family     model.Family  `json:"family"`
	Query      string        `json:"query"`
	Count      int           `json:"count"`
	Results    []model.Emoji `json:"results"`
	QueryError string        `json:"query_error,omitempty"`
}

// handleSearch answers GET query strings and POST JSON bodies. A query that
// does not parse is not fatal: the unfiltered catalog is returned together
// with query_error.
func (s *SearchServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	atomic.AddInt64(&s.requestCounter, 1)

	req, err := s.parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Run(r.Context(), req)
	var queryErr error
	if err != nil && engine.IsQueryError(err) {
		queryErr = err
		fallback := req
		fallback.Query = ""
		res, err = s.engine.Run(r.Context(), fallback)
	}
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	resp := searchResponse{
		Family:  res.Family,
		Query:   req.Query,
		Count:   res.Total,
		Results: res.Emojis,
	}
	if resp.Results == nil {
		resp.Results = []model.Emoji{}
	}
	if queryErr != nil {
		resp.QueryError = queryErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type facetsResponse struct {
	Family     model.Family        `json:"family"`
	Query      string              `json:"query"`
	Groups     []engine.GroupFacet `json:"groups"`
	QueryError string              `json:"query_error,omitempty"`
}

func (s *SearchServer) handleFacets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	family, err := s.family(q.Get("family"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := q.Get("q")

	facets, err := s.engine.Facets(r.Context(), query, family)
	var queryErr string
	if err != nil && engine.IsQueryError(err) {
		queryErr = err.Error()
		facets, err = s.engine.Facets(r.Context(), "", family)
	}
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, facetsResponse{
		Family:     family,
		Query:      query,
		Groups:     facets,
		QueryError: queryErr,
	})
}

func (s *SearchServer) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	tree, err := engine.Explain(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"query": query, "tree": tree})
}

// handleEmoji serves /api/emojis/{family}/{cldr} and lists the whole
// catalog at /api/emojis/{family}.
func (s *SearchServer) handleEmoji(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/emojis/"), "/")
	familyName, cldr, _ := strings.Cut(rest, "/")
	if familyName == "" {
		writeError(w, http.StatusNotFound, "expected /api/emojis/{family}/{cldr}")
		return
	}

	family, err := model.ParseFamily(familyName)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if cldr == "" {
		emojis, err := s.catalog.All(r.Context(), family)
		if err != nil {
			s.writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"family":  family,
			"count":   len(emojis),
			"results": emojis,
		})
		return
	}

	e, err := s.catalog.Get(r.Context(), family, cldr)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type familyInfo struct {
	Name   model.Family `json:"name"`
	File   string       `json:"file"`
	Cached bool         `json:"cached"`
}

func (s *SearchServer) handleFamilies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	cached := make(map[model.Family]bool)
	for _, f := range s.catalog.Cached() {
		cached[f] = true
	}

	out := make([]familyInfo, 0, len(model.Families))
	for _, f := range model.Families {
		out = append(out, familyInfo{Name: f, File: f.MetadataFile(), Cached: cached[f]})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default":  s.opts.DefaultFamily,
		"families": out,
	})
}

func (s *SearchServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"searches":        s.engine.Stats().Snapshot(),
		"search_requests": atomic.LoadInt64(&s.requestCounter),
		"uptime_seconds":  int64(time.Since(s.started).Seconds()),
	})
}

// handleReload drops cached catalogs. The optional JSON body
// {"families": ["NOTO"], "warm": true} narrows the reload and reloads eagerly.
func (s *SearchServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	families := append([]model.Family(nil), model.Families...)
	warm := false

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		p := s.parser.Get()
		v, err := p.ParseBytes(body)
		if err != nil {
			s.parser.Put(p)
			writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return
		}
		warm = v.GetBool("warm")
		if list := v.GetArray("families"); list != nil {
			families = families[:0]
			for _, item := range list {
				f, err := model.ParseFamily(string(item.GetStringBytes()))
				if err != nil {
					s.parser.Put(p)
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
				families = append(families, f)
			}
			if len(families) == 0 {
				s.parser.Put(p)
				writeError(w, http.StatusBadRequest, "families must not be empty")
				return
			}
		}
		s.parser.Put(p)
	}

	s.catalog.Invalidate(families...)
	s.logger.InfoContext(r.Context(), "catalog cache invalidated", "families", families)

	if warm {
		if err := s.catalog.Warm(r.Context(), families...); err != nil {
			s.writeEngineError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"invalidated": families,
		"warmed":      warm,
	})
}

// parseSearchRequest reads q, family, sort, group_by_group and limit from the
// URL query or, for POST, from a JSON object body.
func (s *SearchServer) parseSearchRequest(r *http.Request) (engine.Request, error) {
	var (
		query, familyName, sortName string
		byGroup                     bool
		limit                       int
	)

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return engine.Request{}, errors.New("failed to read body")
		}

		p := s.parser.Get()
		defer s.parser.Put(p)

		v, err := p.ParseBytes(body)
		if err != nil {
			return engine.Request{}, errors.New("invalid JSON: " + err.Error())
		}
		if v.Type() != fastjson.TypeObject {
			return engine.Request{}, errors.New("invalid JSON: expected an object")
		}
		query = string(v.GetStringBytes("q"))
		familyName = string(v.GetStringBytes("family"))
		sortName = string(v.GetStringBytes("sort"))
		byGroup = v.GetBool("group_by_group")
		limit = v.GetInt("limit")
	} else {
		q := r.URL.Query()
		query = q.Get("q")
		familyName = q.Get("family")
		sortName = q.Get("sort")
		if g := q.Get("group_by_group"); g != "" {
			b, err := strconv.ParseBool(g)
			if err != nil {
				return engine.Request{}, errors.New("group_by_group must be a boolean")
			}
			byGroup = b
		}
		if l := q.Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil {
				return engine.Request{}, errors.New("limit must be an integer")
			}
			limit = n
		}
	}

	if limit < 0 {
		return engine.Request{}, errors.New("limit must not be negative")
	}
	family, err := s.family(familyName)
	if err != nil {
		return engine.Request{}, err
	}

	return engine.Request{
		Query:        query,
		Family:       family,
		Sort:         sortName,
		GroupByGroup: byGroup,
		Limit:        limit,
	}, nil
}

func (s *SearchServer) family(name string) (model.Family, error) {
	if name == "" {
		return s.opts.DefaultFamily, nil
	}
	return model.ParseFamily(name)
}

// writeEngineError maps engine and catalog errors to HTTP statuses.
func (s *SearchServer) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrUnknownFamily),
		errors.Is(err, engine.ErrUnknownSort),
		errors.Is(err, emojiql.ErrUnsupportedFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
