package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cricklet/chessforge/internal/config"
	"github.com/cricklet/chessforge/internal/engine"
	"github.com/cricklet/chessforge/internal/game"
	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server is the browser front end: a websocket per game plus a small JSON
// API. Every connection shares the registry's engine session.
type Server struct {
	config   config.Config
	registry *engine.Registry
	logger   Logger
	upgrader websocket.Upgrader
}

type ServerOption func(*Server)

func WithLogger(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(config config.Config, registry *engine.Registry, options ...ServerOption) *Server {
	s := &Server{
		config:   config,
		registry: registry,
	}

	for _, option := range options {
		option(s)
	}

	if s.logger == nil {
		s.logger = &DefaultLogger
	}

	return s
}

func (s *Server) Router() *mux.Router {
	static := s.config.Server.StaticDir

	router := mux.NewRouter()
	router.HandleFunc("/ws", s.serveWebsocket)
	router.HandleFunc("/api/bestmove", s.serveBestMove).Methods(http.MethodGet)
	router.HandleFunc("/api/levels", s.serveLevels).Methods(http.MethodGet)
	router.PathPrefix("/static").Handler(
		http.StripPrefix("/static", http.FileServer(http.Dir(static))))
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(static, "index.html"))
	})
	return router
}

func (s *Server) ListenAndServe(ctx context.Context) Error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", s.config.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Println("serving at", s.config.Server.Port)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return NilError
	}
	return Wrap(err)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, err Error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) serveLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, game.Levels)
}

func queryInt(r *http.Request, key string) (Optional[int], Error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return Empty[int](), NilError
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return Empty[int](), Errorf("%v=%v: %w", key, value, err)
	}
	return Some(n), NilError
}

// searchParams uses depth or movetime (in ms) from the query when given,
// otherwise the configured effort.
func (s *Server) searchParams(r *http.Request) (uci.SearchParams, Error) {
	depth, err := queryInt(r, "depth")
	if err.HasError() {
		return uci.SearchParams{}, err
	}
	movetime, err := queryInt(r, "movetime")
	if err.HasError() {
		return uci.SearchParams{}, err
	}

	if depth.HasValue() {
		return uci.DepthParams(depth.Value()), NilError
	}
	if movetime.HasValue() {
		return uci.DurationParams(time.Duration(movetime.Value()) * time.Millisecond), NilError
	}
	return s.config.SearchParams(), NilError
}

func (s *Server) serveBestMove(w http.ResponseWriter, r *http.Request) {
	// the rules library rejects malformed positions before the engine sees them
	g, err := game.NewGame(r.URL.Query().Get("fen"))
	if err.HasError() {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	params, err := s.searchParams(r)
	if err.HasError() {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	skill, err := queryInt(r, "skill")
	if err.HasError() {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := s.registry.Acquire(r.Context())
	if err.HasError() {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	result, err := session.Search(r.Context(), engine.SearchRequest{
		Position:   g.CurrentPosition(),
		Params:     params,
		SkillLevel: skill,
	})
	if errors.Is(err, engine.ErrInvalidSearch) {
		writeError(w, http.StatusBadRequest, err)
		return
	} else if err.HasError() {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	response := BestMoveResponse{
		NoMove: result.NoMove(),
		Depth:  result.Depth,
		Nodes:  result.Nodes,
		PV:     result.PV,
	}
	if result.BestMove.HasValue() {
		response.BestMove = result.BestMove.Value().String()
	}
	if result.Ponder.HasValue() {
		response.Ponder = result.Ponder.Value().String()
	}
	if result.Score.HasValue() {
		response.Eval = evalToWeb(result.Score.Value().ForWhite(g.Turn() == game.White))
	}

	writeJSON(w, http.StatusOK, response)
}
