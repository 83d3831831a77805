package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/repo"
)

// ListDispatches возвращает dispatch с фильтрацией.
// GET /api/v1/dispatches?node_id=...&state=...&limit=...&offset=...
func (h *Handler) ListDispatches(w http.ResponseWriter, r *http.Request) {
	filter := repo.DispatchFilter{
		State:  domain.DispatchState(r.URL.Query().Get("state")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if v := r.URL.Query().Get("node_id"); v != "" {
		nodeID, err := uuid.Parse(v)
		if err != nil {
			BadRequest(w, "invalid node_id")
			return
		}
		filter.NodeID = &nodeID
	}

	h.listDispatches(w, r, filter)
}

// ListNodeDispatches возвращает историю dispatch узла.
// GET /api/v1/nodes/{id}/dispatches
func (h *Handler) ListNodeDispatches(w http.ResponseWriter, r *http.Request) {
	nodeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid node id")
		return
	}

	h.listDispatches(w, r, repo.DispatchFilter{
		NodeID: &nodeID,
		State:  domain.DispatchState(r.URL.Query().Get("state")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	})
}

func (h *Handler) listDispatches(w http.ResponseWriter, r *http.Request, filter repo.DispatchFilter) {
	dispatches, err := h.dispatches.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	List(w, dispatches, len(dispatches))
}

// GetDispatch возвращает dispatch по ID.
// GET /api/v1/dispatches/{id}
func (h *Handler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid dispatch id")
		return
	}

	d, err := h.dispatches.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "dispatch not found") {
		return
	}

	Success(w, d)
}
