package api

import (
	"net/http"

	"github.com/shaiso/dockflow/internal/domain"
)

// ListActions возвращает таблицу действий вида ресурса.
// GET /api/v1/actions/{kind}
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	kind := domain.ResourceKind(r.PathValue("kind"))
	if !kind.IsValid() {
		NotFound(w, "unknown resource kind")
		return
	}

	infos := h.router.Describe(kind)
	List(w, infos, len(infos))
}

// ContainerSearch возвращает все контейнеры (включая остановленные).
// POST /containerSearch
//
// Ответ — список Docker Engine как есть, без обёртки data.
func (h *Handler) ContainerSearch(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "containers", func(req SearchRequest) (any, error) {
		options := map[string]any{"all": true}
		for k, v := range req.Options {
			options[k] = v
		}
		return h.searcher.ListContainers(r.Context(), options)
	})
}

// VolumeSearch возвращает все тома.
// POST /volumeSearch
func (h *Handler) VolumeSearch(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "volumes", func(req SearchRequest) (any, error) {
		return h.searcher.ListVolumes(r.Context(), req.Options)
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, what string, list func(SearchRequest) (any, error)) {
	if h.searcher == nil {
		Unavailable(w, "docker is not configured")
		return
	}

	var req SearchRequest
	if err := decodeJSON(r, &req, true); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	result, err := list(req)
	if err != nil {
		h.logger.Error("discovery failed", "resource", what, "error", err)
		Error(w, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}

	h.logger.Debug("discovery", "resource", what, "node", req.ID)
	JSON(w, http.StatusOK, result)
}
