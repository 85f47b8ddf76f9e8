package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
)

type ingestRequest struct {
	Sources []string `json:"sources"`
}

type askRequest struct {
	Question string `json:"question"`
}

type chatRequest struct {
	Actor    string         `json:"actor_id"`
	Thread   string         `json:"thread_id"`
	Messages []core.Message `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest starts a background ingestion run and returns 202 with
// the job ID.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Detached from the request context: the job outlives the request.
	id := s.jobs.Start(context.Background(), req.Sources)
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "status": "running"})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.jobs.Status(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream carries no state-changing operations.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleJobEvents streams a job's progress messages over a websocket,
// replaying past events first. The connection closes when the job
// finishes.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	events, ok := s.jobs.Subscribe(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for ev := range events {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(ev.Message)); err != nil {
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}

// handleAsk answers a one-shot question from the indexed corpus. An
// empty index is a conflict, not an error: ingestion has to run first.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := s.synthesizer.Answer(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, core.ErrIndexNotReady) {
			writeError(w, http.StatusConflict, "index is empty; run ingestion first")
			return
		}
		s.logger.Error("answer synthesis failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "answer synthesis failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleChat runs one conversational turn for an (actor, thread) pair.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor == "" || req.Thread == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "actor_id, thread_id, and messages are required")
		return
	}

	reply, err := s.orchestrator.RunTurn(r.Context(), req.Actor, req.Thread, req.Messages)
	if err != nil {
		var corrupt *core.CorruptCheckpointError
		if errors.As(err, &corrupt) {
			s.logger.Error("thread checkpoint unreadable", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "thread state is unreadable")
			return
		}
		s.logger.Error("chat turn failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "chat turn failed")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// handleMemory lists the stored long-term memories of a thread.
func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	thread := chi.URLParam(r, "thread")

	items, err := s.store.ListItems(actor, thread)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
