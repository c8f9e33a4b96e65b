package handlers

import (
	"net/http"
	"strings"

	"github.com/agentstation/smtindex/internal/server/response"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/status"
)

// HandleListTemplates handles GET /api/v1/templates.
//
// Query parameters:
//   - status: exact status, any casing
//   - q: substring of name, description, id or registry number
//
// Results are summaries in index order.
func (h *Handlers) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	filter := index.Filter{
		Status: r.URL.Query().Get("status"),
		Query:  r.URL.Query().Get("q"),
	}
	if filter.Status != "" {
		if _, ok := status.Parse(filter.Status); !ok {
			response.BadRequest(w, "Unknown status", "status must be one of "+statusList())
			return
		}
	}

	key := "templates:" + filter.Status + ":" + filter.Query
	data, err := h.cache.GetOrCompute(key, func() (any, error) {
		idx, err := h.provider.Index()
		if err != nil {
			return nil, err
		}
		summaries := idx.Select(filter)
		return map[string]any{
			"templates": summaries,
			"count":     len(summaries),
		}, nil
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, data)
}

// HandleGetTemplate handles GET /api/v1/templates/{id}.
func (h *Handlers) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	idx, err := h.provider.Index()
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	t, ok := idx.Find(id)
	if !ok {
		response.ErrorFromType(w, errors.NewNotFoundError("template", id))
		return
	}
	response.OK(w, t)
}

// HandleIndex handles GET /api/v1/index. The body is the index itself, in
// the same encoding as the index.json artifact.
func (h *Handlers) HandleIndex(w http.ResponseWriter, _ *http.Request) {
	data, err := h.cache.GetOrCompute("index", func() (any, error) {
		idx, err := h.provider.Index()
		if err != nil {
			return nil, err
		}
		return index.Marshal(idx)
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data.([]byte))
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request) {
	data, err := h.cache.GetOrCompute("stats", func() (any, error) {
		idx, err := h.provider.Index()
		if err != nil {
			return nil, err
		}
		return idx.Stats(), nil
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, data)
}

func statusList() string {
	names := make([]string, 0, len(status.All()))
	for _, s := range status.All() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
