package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conneroisu/docview/internal/analytics"
	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/loader"
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/types"
	"github.com/conneroisu/docview/internal/version"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type classListResponse struct {
	Count       int                  `json:"count"`
	Message     string               `json:"message,omitempty"`
	Classes     []types.ClassSummary `json:"classes"`
	MemberTypes []types.MemberType   `json:"memberTypes,omitempty"`
}

type resolveResponse struct {
	Input string `json:"input"`
	Name  string `json:"name"`
	Known bool   `json:"known"`
}

type classResponse struct {
	Class  *types.ClassDocument `json:"class"`
	Groups []members.Group      `json:"groups"`
}

type membersResponse struct {
	Class  string            `json:"class"`
	Text   string            `json:"text"`
	Show   members.ShowFlags `json:"show"`
	Groups []members.Group   `json:"groups"`
	Hidden []string          `json:"hidden"`
}

type statsResponse struct {
	Sessions int                 `json:"sessions"`
	Cache    loader.Stats        `json:"cache"`
	Policy   string              `json:"policy"`
	Activity *analytics.Snapshot `json:"activity,omitempty"`
}

type healthResponse struct {
	Status   string       `json:"status"`
	Version  string       `json:"version"`
	Build    version.Info `json:"build"`
	Uptime   string       `json:"uptime"`
	Classes  int          `json:"classes"`
	Sessions int          `json:"sessions"`
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn(ctx, err, "Failed to encode response")
	}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var docErr *errors.DocError
	if stderrors.As(err, &docErr) {
		resp.Code = docErr.Code
	}
	s.writeJSON(ctx, w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	resp := healthResponse{
		Status:  "healthy",
		Version: info.Short(),
		Build:   info,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Classes: s.catalog.Count(),
	}
	if s.hub != nil {
		resp.Sessions = s.hub.GetConnectedClients()
		if s.hub.IsShutdown() {
			resp.Status = "shutting down"
		}
	}
	s.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	classes := s.catalog.Classes()
	s.writeJSON(r.Context(), w, http.StatusOK, classListResponse{
		Count:       len(classes),
		Message:     s.catalog.Message(),
		Classes:     classes,
		MemberTypes: s.catalog.MemberTypes(),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	input := chi.URLParam(r, "name")
	s.writeJSON(r.Context(), w, http.StatusOK, resolveResponse{
		Input: input,
		Name:  s.catalog.Resolve(input),
		Known: s.catalog.Known(input),
	})
}

// loadClass resolves the name parameter and fetches the document through
// the shared loader, writing the error response itself on failure.
func (s *Server) loadClass(w http.ResponseWriter, r *http.Request) (*types.ClassDocument, bool) {
	name := s.catalog.Resolve(chi.URLParam(r, "name"))
	doc, err := s.loader.LoadSync(r.Context(), name)
	if err == nil {
		return doc, true
	}

	switch {
	case r.Context().Err() != nil:
		s.writeError(r.Context(), w, http.StatusGatewayTimeout, err)
	case errors.IsNotFound(err):
		s.writeError(r.Context(), w, http.StatusNotFound, err)
	default:
		s.logger.Error(r.Context(), err, "Class load failed", "class", name)
		s.writeError(r.Context(), w, http.StatusBadGateway, err)
	}
	return nil, false
}

func (s *Server) handleClass(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadClass(w, r)
	if !ok {
		return
	}
	s.writeJSON(r.Context(), w, http.StatusOK, classResponse{
		Class:  doc,
		Groups: members.Groups(doc, s.catalog.MemberTypes()),
	})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	base := members.DefaultShowFlags()
	if s.prefs != nil {
		base = s.prefs.Show()
	}
	show, err := parseShowFlags(r, base)
	if err != nil {
		s.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	doc, ok := s.loadClass(w, r)
	if !ok {
		return
	}

	text := r.URL.Query().Get("q")
	engine := members.NewEngine(show)
	engine.Set(text, show)

	hidden := engine.Hidden(doc.Members)
	if hidden == nil {
		hidden = []string{}
	}
	s.writeJSON(r.Context(), w, http.StatusOK, membersResponse{
		Class:  doc.Name,
		Text:   text,
		Show:   show,
		Groups: members.FilterGroups(members.Groups(doc, s.catalog.MemberTypes()), text, show),
		Hidden: hidden,
	})
}

// parseShowFlags overrides base with the public, private, deprecated and
// internal query parameters that are present.
func parseShowFlags(r *http.Request, base members.ShowFlags) (members.ShowFlags, error) {
	q := r.URL.Query()
	fields := []struct {
		name string
		dst  *bool
	}{
		{"public", &base.Public},
		{"private", &base.Private},
		{"deprecated", &base.Deprecated},
		{"internal", &base.Internal},
	}
	for _, f := range fields {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return base, errors.NewValidationError(errors.ErrCodeInvalidIntent,
				fmt.Sprintf("invalid %s flag %q", f.name, raw))
		}
		*f.dst = v
	}
	return base, nil
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	strategy := tree.ByPackage
	showPrivate := false
	if s.prefs != nil {
		strategy = s.prefs.Grouping()
		showPrivate = s.prefs.ShowPrivate()
	}

	q := r.URL.Query()
	if raw := q.Get("grouping"); raw != "" {
		parsed, err := tree.ParseStrategy(raw)
		if err != nil {
			s.writeError(r.Context(), w, http.StatusBadRequest,
				errors.NewValidationError(errors.ErrCodeInvalidGrouping, err.Error()))
			return
		}
		strategy = parsed
	}
	if raw := q.Get("private"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(r.Context(), w, http.StatusBadRequest,
				errors.NewValidationError(errors.ErrCodeInvalidIntent, fmt.Sprintf("invalid private flag %q", raw)))
			return
		}
		showPrivate = v
	}

	root := strategy.Build(s.catalog.Classes(), tree.Options{ShowPrivate: showPrivate})
	s.writeJSON(r.Context(), w, http.StatusOK, root)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Cache:  s.loader.Stats(),
		Policy: s.loader.Policy().String(),
	}
	if s.hub != nil {
		resp.Sessions = s.hub.GetConnectedClients()
	}
	if s.tracker != nil {
		snap := s.tracker.Snapshot()
		resp.Activity = &snap
	}
	s.writeJSON(r.Context(), w, http.StatusOK, resp)
}
