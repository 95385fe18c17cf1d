// Package mockserver is a development stand-in for the signage backend:
// the playlist CRUD surface plus a realtime relay hub, enough for agents
// and integration tests to exercise the full collaboration path.
package mockserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"signcast/client"
	"signcast/logger"
	"signcast/model"
)

// Server is the mock backend.
type Server struct {
	st   *state
	hub  *Hub
	once sync.Once
}

// NewServer creates a mock backend with empty state.
func NewServer() *Server {
	return &Server{st: newState(), hub: NewHub()}
}

// Router builds the HTTP routes and starts the hub loop.
func (s *Server) Router() *mux.Router {
	s.once.Do(func() { go s.hub.Run() })

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/playlists/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/playlists", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/playlists", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{id}", s.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/playlists/{id}/duplicate", s.handleDuplicate).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{id}/items", s.handleAddItem).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{id}/items/reorder", s.handleReorder).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{id}/items/{itemId}", s.handleUpdateItem).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{id}/items/{itemId}", s.handleRemoveItem).Methods(http.MethodDelete)
	api.HandleFunc("/playlists/{id}/screens", s.handleAssign).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{id}/screens", s.handleUnassign).Methods(http.MethodDelete)
	api.HandleFunc("/screens", s.handleListScreens).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.hub.ServeWS)
	return r
}

// Start runs the hub and serves HTTP until the context is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	defer s.hub.Stop()

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mock backend listening", logger.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var isActive *bool
	if v := q.Get("isActive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid isActive value")
			return
		}
		isActive = &b
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	writeJSON(w, http.StatusOK, s.st.list(q.Get("search"), isActive, q.Get("screenId"), page, limit))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := s.st.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "playlist not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req client.CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "name is required",
			"field":   "name",
		})
		return
	}
	writeJSON(w, http.StatusCreated, s.st.create(req.Name, req.Description, req.Schedule))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req client.UpdatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "name must not be empty",
			"field":   "name",
		})
		return
	}
	p, ok := s.st.update(id, req.Name, req.Description, req.IsActive, req.Schedule)
	if !ok {
		writeError(w, http.StatusNotFound, "playlist not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.st.delete(id) {
		writeError(w, http.StatusNotFound, "playlist not found: "+id)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := s.st.duplicate(id)
	if !ok {
		writeError(w, http.StatusNotFound, "playlist not found: "+id)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req client.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MediaID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "mediaId is required",
			"field":   "mediaId",
		})
		return
	}
	p, ok := s.st.addItem(id, req.MediaID, req.Position, req.Duration)
	if !ok {
		writeError(w, http.StatusNotFound, "playlist not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, found, removed := s.st.removeItem(vars["id"], vars["itemId"])
	if !found {
		writeError(w, http.StatusNotFound, "playlist not found: "+vars["id"])
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "item not found: "+vars["itemId"])
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req client.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, found, ok := s.st.reorder(id, req.ItemIDs)
	if !found {
		writeError(w, http.StatusNotFound, "playlist not found: "+id)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "itemIds must be a permutation of the playlist's items")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req client.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, found, ok := s.st.updateItem(vars["id"], vars["itemId"], req.Duration)
	if !found {
		writeError(w, http.StatusNotFound, "playlist not found: "+vars["id"])
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "item not found: "+vars["itemId"])
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	s.handleScreens(w, r, true)
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	s.handleScreens(w, r, false)
}

func (s *Server) handleScreens(w http.ResponseWriter, r *http.Request, assign bool) {
	id := mux.Vars(r)["id"]
	var req client.ScreensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, ok := s.st.setScreens(id, req.ScreenIDs, assign)
	if !ok {
		writeError(w, http.StatusNotFound, "playlist not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListScreens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.st.listScreens())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.st.stats())
}

// Seed inserts a playlist directly, for tests and demos.
func (s *Server) Seed(p *model.Playlist) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	cp := p.Clone()
	cp.Renumber()
	s.st.playlists[cp.ID] = cp
}
