package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"xrplboard/internal/application/usecase/price"
	"xrplboard/internal/application/usecase/tokenlist"
)

// TokenList is the part of tokenlist.List the API serves.
type TokenList interface {
	View() tokenlist.View
	Search(term string) tokenlist.View
	Refresh(ctx context.Context) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Favorites() []string
}

type PriceSource interface {
	State() price.State
}

// Server exposes the token list and XRP price over HTTP and a websocket.
type Server struct {
	list        TokenList
	price       PriceSource
	broadcaster *Broadcaster
	mux         *http.ServeMux
	server      *http.Server
}

func NewServer(addr string, list TokenList, prices PriceSource, broadcaster *Broadcaster) *Server {
	mux := http.NewServeMux()
	s := &Server{
		list:        list,
		price:       prices,
		broadcaster: broadcaster,
		mux:         mux,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/tokens", s.handleTokens)
	s.mux.HandleFunc("POST /api/tokens/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/favorites", s.handleFavorites)
	s.mux.HandleFunc("POST /api/favorites/{id}", s.handleToggleFavorite)
	s.mux.HandleFunc("GET /api/price", s.handlePrice)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.broadcaster != nil {
		s.mux.HandleFunc("GET /ws", s.broadcaster.Handler())
	}
}

func (s *Server) Handler() http.Handler { return s.mux }

// handleTokens filters by ?search= for this request only; the shared list
// keeps its own term.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("search") {
		writeJSON(w, http.StatusOK, s.list.View())
		return
	}
	writeJSON(w, http.StatusOK, s.list.Search(q.Get("search")))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.list.Refresh(r.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, tokenlist.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"error": err.Error(), "view": s.list.View()})
		return
	}
	writeJSON(w, http.StatusOK, s.list.View())
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"favorites": s.list.Favorites()})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing token id"})
		return
	}
	on, err := s.list.ToggleFavorite(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("token", id).Msg("toggle favorite failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": on})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.price.State())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := sonic.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode response failed")
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// Start listens until Shutdown. http.ErrServerClosed is not reported.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.broadcaster != nil {
		s.broadcaster.Close()
	}
	return s.server.Shutdown(ctx)
}
