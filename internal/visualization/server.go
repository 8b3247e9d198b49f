package visualization

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/inflood/internal/diffusion"
	"github.com/nvandessel/inflood/internal/network"
)

// Server serves a base graph and runs cascades on it over HTTP.
type Server struct {
	graph      *network.Graph
	config     diffusion.Config
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// CascadeResponse is the body of /api/cascade.
type CascadeResponse struct {
	Seed      int64                  `json:"seed"`
	RNGSeed   uint64                 `json:"rng_seed"`
	Days      []diffusion.DayStats   `json:"days"`
	Influence map[string]interface{} `json:"influence"`
}

// NewServer creates a new graph server. Cascades use config.
func NewServer(g *network.Graph, config diffusion.Config) *Server {
	return &Server{
		graph:  g,
		config: config,
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe starts the HTTP server on addr ("" picks a free localhost
// port) and blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/graph.json", s.handleJSON)
	mux.HandleFunc("/api/cascade", s.handleCascade)

	if addr == "" {
		addr = "localhost:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleIndex serves the base graph as DOT.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.Write([]byte(RenderDOT(s.graph, nil)))
}

// handleJSON serves the base graph as JSON.
func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RenderJSON(s.graph, nil))
}

// handleCascade runs one cascade from a single seed and returns the
// collapsed influence graph with per-day statistics.
// Query: seed (required), days, rng.
func (s *Server) handleCascade(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	seedParam := q.Get("seed")
	if seedParam == "" {
		http.Error(w, "missing 'seed' query parameter", http.StatusBadRequest)
		return
	}
	seed, err := strconv.ParseInt(seedParam, 10, 64)
	if err != nil {
		http.Error(w, "invalid seed: "+seedParam, http.StatusBadRequest)
		return
	}
	if !s.graph.HasNode(seed) {
		http.Error(w, "seed node not found: "+seedParam, http.StatusNotFound)
		return
	}

	cfg := s.config
	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			http.Error(w, "invalid days: "+v, http.StatusBadRequest)
			return
		}
		cfg.Days = days
	}

	rngSeed := uint64(time.Now().UnixNano())
	if v := q.Get("rng"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid rng: "+v, http.StatusBadRequest)
			return
		}
		rngSeed = n
	}

	engine := diffusion.NewEngine(s.graph, cfg, diffusion.WithSource(diffusion.NewSource(rngSeed)))
	res, err := engine.RunFrom(r.Context(), []int64{seed})
	if err != nil {
		http.Error(w, "cascade error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	influence, err := res.Influence.Collapse()
	if err != nil {
		http.Error(w, "cascade error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CascadeResponse{
		Seed:      seed,
		RNGSeed:   rngSeed,
		Days:      res.Days,
		Influence: RenderJSON(influence, AnnotationsFrom(res)),
	})
}
