package server

import (
	"encoding/json"
	"net/http"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/auth"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/pipeline"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/reqcontext"
	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/textsql"
)

type queryRequest struct {
	Query           string                          `json:"query"`
	ChatHistory     []textsql.ChatMessage           `json:"chat_history,omitempty"`
	PreviousContext *queryspec.ConversationContext  `json:"previous_context,omitempty"`
	AccountIDs      []string                        `json:"account_ids,omitempty"`
	OrganizationID  string                           `json:"organization_id,omitempty"`
}

// @Summary      Run a natural-language cost query
// @Description  Resolves a natural-language FinOps question against the Cost and Usage Report, returning a summary, chart recommendations, and the underlying rows
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        body  body      queryRequest  true  "Query request"
// @Success      200   {object}  api.UnifiedResponse
// @Failure      400   {object}  object{error=string}
// @Failure      503   {object}  object{error=string}
// @Security     SessionAuth
// @Router       /query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.entrypoint == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "query pipeline not configured"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	// AllowedAccountIDs defaults to whatever the client asked to scope to; it
	// is only ever narrowed below, never the source of IsAdmin. An
	// unauthenticated or non-admin caller that sends no account_ids ends up
	// with an empty allow-list, which reqcontext treats as fail-closed
	// (spec §3), not as admin/no-scoping.
	reqCtx := &reqcontext.Context{
		AllowedAccountIDs: req.AccountIDs,
		OrganizationID:    req.OrganizationID,
	}

	session := auth.UserFromContext(r.Context())
	if session != nil {
		reqCtx.UserID = session.UserID
		reqCtx.UserEmail = session.Email
	}

	if s.authMgr != nil && !s.authMgr.IsDisabled() {
		if session == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		if s.rbac == nil {
			s.logger.Error("query requested with auth enabled but no RBAC configured")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "authorization not configured"})
			return
		}

		reqCtx.IsAdmin = s.rbac.IsPlatformAdmin(r.Context(), session)
		if !reqCtx.IsAdmin {
			allowed, err := s.rbac.AllowedAccountIDs(r.Context(), session.UserID)
			if err != nil {
				s.logger.Error("resolve allowed accounts failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
				return
			}
			reqCtx.AllowedAccountIDs = intersectAccountIDs(allowed, req.AccountIDs)
		}
	}

	resp, err := s.entrypoint.Execute(r.Context(), pipeline.Request{
		Query:           req.Query,
		ChatHistory:     req.ChatHistory,
		PreviousContext: req.PreviousContext,
		RequestCtx:      reqCtx,
	})
	if err != nil {
		s.logger.Error("query pipeline failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// intersectAccountIDs narrows allowed to the subset the client explicitly
// requested in requested, if any; an empty requested list means "use the
// full allowed set" rather than "use nothing".
func intersectAccountIDs(allowed, requested []string) []string {
	if len(requested) == 0 {
		return allowed
	}
	want := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		want[id] = struct{}{}
	}
	out := make([]string, 0, len(allowed))
	for _, id := range allowed {
		if _, ok := want[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
