// Package main provides the weft playground backend server.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"weft/alias"
	"weft/fingerprint"
	"weft/internal/config"
	"weft/internal/queryeval"
	"weft/parse"
	"weft/registry"
)

const (
	readTimeout    = 30 * time.Second
	writeTimeout   = 60 * time.Second
	idleTimeout    = 120 * time.Second
	socketDeadline = 5 * time.Minute
)

// AnalyzeRequest is one self-contained analysis job: extra operator
// declarations, analysis rules, the graph text, and queries to run
// against the resulting database.
type AnalyzeRequest struct {
	Schemas string            `json:"schemas,omitempty"`
	Rules   string            `json:"rules,omitempty"`
	Graph   string            `json:"graph"`
	Queries []queryeval.Query `json:"queries,omitempty"`
}

// AnalyzeResponse carries the database dump and per-query results.
type AnalyzeResponse struct {
	Dump        string             `json:"dump,omitempty"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Graph       string             `json:"graph,omitempty"`
	Results     []queryeval.Result `json:"results,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// analyze runs one request through the full pipeline. Every request
// builds a fresh registry and database; nothing is shared between
// requests.
func analyze(req *AnalyzeRequest) (*AnalyzeResponse, error) {
	reg := registry.Default().Clone()
	if req.Schemas != "" {
		if err := reg.RegisterLines([]byte(req.Schemas)); err != nil {
			return nil, fmt.Errorf("schemas: %w", err)
		}
	}
	if req.Rules != "" {
		rules, err := registry.ParseRules([]byte(req.Rules))
		if err != nil {
			return nil, err
		}
		reg.AddRules(rules)
	}

	g, err := parse.NewGraphParser(reg).Parse([]byte(req.Graph))
	if err != nil {
		return nil, fmt.Errorf("parsing graph: %w", err)
	}
	db, err := alias.New(g, alias.WithRegistry(reg))
	if err != nil {
		return nil, fmt.Errorf("analyzing graph: %w", err)
	}

	resp := &AnalyzeResponse{
		Dump:    db.Dump(),
		Results: queryeval.EvalAll(db, req.Queries),
	}
	// Moves applied by queries show up in the returned graph text.
	resp.Graph = g.String()
	resp.Fingerprint = fingerprint.GraphHex(g)
	return resp, nil
}

// Server is the HTTP server for the playground.
type Server struct {
	cfg      *config.Config
	upgrader websocket.Upgrader
}

// NewServer creates a new playground server.
func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}
}

// handleAnalyze runs a one-shot analysis via REST.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxRequestBytes))

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	resp, err := analyze(&req)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(AnalyzeResponse{Error: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(resp)
}

// handleSocket streams analysis over a websocket: each text message is
// one AnalyzeRequest, answered with one AnalyzeResponse.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(int64(s.cfg.MaxRequestBytes))

	for {
		conn.SetReadDeadline(time.Now().Add(socketDeadline))
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req AnalyzeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			conn.WriteJSON(AnalyzeResponse{Error: "invalid request: " + err.Error()})
			continue
		}
		resp, err := analyze(&req)
		if err != nil {
			conn.WriteJSON(AnalyzeResponse{Error: err.Error()})
			continue
		}
		conn.WriteJSON(resp)
	}
}

// handleHealth reports liveness and the server version.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func main() {
	cfg := config.FromEnv()
	server := NewServer(cfg)

	http.HandleFunc("/api/analyze", server.handleAnalyze)
	http.HandleFunc("/api/socket", server.handleSocket)
	http.HandleFunc("/api/health", server.handleHealth)

	srv := &http.Server{
		Addr:         cfg.Listen,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	log.Printf("weft playground starting on %s", cfg.Listen)
	log.Printf("  max_request: %d KB", cfg.MaxRequestBytes/1024)
	log.Printf("  version:     %s", cfg.Version)
	log.Fatal(srv.ListenAndServe())
}
