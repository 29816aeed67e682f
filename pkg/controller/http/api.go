package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/domain/model"
	"github.com/chiron-lab/chiron/pkg/domain/types"
	"github.com/chiron-lab/chiron/pkg/usecase"
	"github.com/chiron-lab/chiron/pkg/utils/errutil"
)

const (
	defaultSearchLimit  = 5
	defaultRelatedDepth = 1
)

// respondJSON writes v as a JSON response with the given status code
func respondJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}

// statusFromError maps use case errors to HTTP status codes
func statusFromError(err error) int {
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound), errors.Is(err, types.ErrNodeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func sessionIDParam(r *http.Request) types.SessionID {
	return types.SessionID(chi.URLParam(r, "sessionID"))
}

type chatRequest struct {
	SessionID types.SessionID `json:"session_id"`
	Message   string          `json:"message"`
}

// handleChat answers one text turn, creating a session when none is given
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to decode chat request"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("message is required"), http.StatusBadRequest)
		return
	}

	if req.SessionID == "" {
		session, err := s.uc.Analytics.StartSession(ctx)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
			return
		}
		req.SessionID = session.ID
	}

	interaction, err := s.uc.Chat.HandleText(ctx, req.SessionID, req.Message)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, interaction)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := s.uc.Analytics.StartSession(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Sessions []*model.Session `json:"sessions"`
	}

	ctx := r.Context()

	sessions, err := s.uc.Analytics.ListSessions(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	respondJSON(ctx, w, http.StatusOK, response{Sessions: sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := s.uc.Analytics.Session(ctx, sessionIDParam(r))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, session)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := s.uc.Analytics.Summary(ctx, sessionIDParam(r))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, summary)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	insights, err := s.uc.Analytics.Insights(ctx, sessionIDParam(r))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, insights)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	export, err := s.uc.Analytics.Export(ctx, sessionIDParam(r))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, export)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.uc.Analytics.ResetSession(ctx, sessionIDParam(r)); err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, s.graph.Stats())
}

func (s *Server) handleGraphSearch(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Results []*model.KnowledgeNode `json:"results"`
	}

	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("query parameter q is required"), http.StatusBadRequest)
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errutil.HandleHTTP(ctx, w, goerr.New("limit must be a positive integer", goerr.V("limit", raw)), http.StatusBadRequest)
			return
		}
		limit = n
	}

	respondJSON(ctx, w, http.StatusOK, response{Results: s.graph.Search(query, limit)})
}

func (s *Server) handleGraphNode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	node, err := s.graph.Node(types.NodeID(chi.URLParam(r, "nodeID")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	respondJSON(ctx, w, http.StatusOK, node)
}

func (s *Server) handleGraphRelated(w http.ResponseWriter, r *http.Request) {
	type relatedEntry struct {
		Node         *model.KnowledgeNode `json:"node"`
		Relationship model.Relationship   `json:"relationship"`
		Depth        int                  `json:"depth"`
	}
	type response struct {
		Related []relatedEntry `json:"related"`
	}

	ctx := r.Context()

	depth := defaultRelatedDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errutil.HandleHTTP(ctx, w, goerr.New("depth must be a positive integer", goerr.V("depth", raw)), http.StatusBadRequest)
			return
		}
		depth = n
	}

	related, err := s.graph.RelatedTo(types.NodeID(chi.URLParam(r, "nodeID")), depth)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, statusFromError(err))
		return
	}

	resp := response{Related: make([]relatedEntry, len(related))}
	for i, rel := range related {
		resp.Related[i] = relatedEntry{
			Node:         rel.Node,
			Relationship: rel.Edge,
			Depth:        rel.Depth,
		}
	}

	respondJSON(ctx, w, http.StatusOK, resp)
}
