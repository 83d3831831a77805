package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/dockflow/internal/domain"
	"github.com/shaiso/dockflow/internal/engine"
	"github.com/shaiso/dockflow/internal/repo"
)

// ListNodes возвращает список узлов.
// GET /api/v1/nodes?kind=...&limit=...&offset=...
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	filter := repo.NodeFilter{
		Kind:   domain.ResourceKind(r.URL.Query().Get("kind")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		BadRequest(w, "invalid kind")
		return
	}

	nodes, err := h.nodes.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	List(w, nodes, len(nodes))
}

// CreateNode создаёт узел.
// POST /api/v1/nodes
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	node := &domain.Node{ID: uuid.New()}
	req.apply(node)

	if err := engine.ValidateNode(node, h.router); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.nodes.Create(r.Context(), node); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	Created(w, node)
}

// GetNode возвращает узел по ID.
// GET /api/v1/nodes/{id}
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid node id")
		return
	}

	node, err := h.nodes.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "node not found") {
		return
	}

	Success(w, node)
}

// UpdateNode заменяет конфигурацию узла.
// PUT /api/v1/nodes/{id}
func (h *Handler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid node id")
		return
	}

	var req NodeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	node, err := h.nodes.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "node not found") {
		return
	}

	req.apply(node)
	if err := engine.ValidateNode(node, h.router); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.nodes.Update(r.Context(), node); err != nil {
		HandleRepoError(w, h.logger, err, "node not found")
		return
	}

	Success(w, node)
}

// DeleteNode удаляет узел.
// DELETE /api/v1/nodes/{id}
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid node id")
		return
	}

	if err := h.nodes.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "node not found")
		return
	}

	NoContent(w)
}

// ApplyNodes создаёт или обновляет набор узлов из YAML/JSON.
// POST /api/v1/nodes/apply
//
// Узлы сохраняются по имени (upsert), затем wires переводятся
// из имён в идентификаторы.
func (h *Handler) ApplyNodes(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}

	defs, err := engine.ParseNodes(data)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	ctx := r.Context()

	// Wires могут ссылаться на уже сохранённые узлы вне набора.
	known := make(map[string]bool)
	ids := make(map[string]uuid.UUID)
	for i := range defs {
		for _, wire := range defs[i].Wires {
			if _, seen := ids[wire]; seen || known[wire] {
				continue
			}
			existing, err := h.nodes.GetByName(ctx, wire)
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			if err != nil {
				InternalError(w, h.logger, err)
				return
			}
			known[wire] = true
			ids[wire] = existing.ID
		}
	}

	if err := engine.ValidateBundle(defs, h.router, known); err != nil {
		BadRequest(w, err.Error())
		return
	}

	nodes := make([]domain.Node, len(defs))
	for i := range defs {
		nodes[i] = defs[i].Node()
		nodes[i].ID = uuid.New()
		if err := h.nodes.Upsert(ctx, &nodes[i]); err != nil {
			InternalError(w, h.logger, fmt.Errorf("upsert node %s: %w", nodes[i].Name, err))
			return
		}
		ids[nodes[i].Name] = nodes[i].ID
	}

	for i := range defs {
		if len(defs[i].Wires) == 0 {
			continue
		}
		wires := make([]uuid.UUID, 0, len(defs[i].Wires))
		for _, name := range defs[i].Wires {
			wires = append(wires, ids[name])
		}
		nodes[i].Wires = wires
		if err := h.nodes.Update(ctx, &nodes[i]); err != nil {
			InternalError(w, h.logger, fmt.Errorf("update wires of %s: %w", nodes[i].Name, err))
			return
		}
	}

	h.logger.Info("node bundle applied", "nodes", len(nodes))
	Success(w, ApplyResponse{Nodes: nodes})
}

// InjectMessage ставит сообщение в очередь узла.
// POST /api/v1/nodes/{id}/inject
func (h *Handler) InjectMessage(w http.ResponseWriter, r *http.Request) {
	nodeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid node id")
		return
	}

	var req InjectRequest
	if err := decodeJSON(r, &req, true); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	ctx := r.Context()

	if _, err := h.nodes.GetByID(ctx, nodeID); HandleRepoError(w, h.logger, err, "node not found") {
		return
	}

	msg := req.message()
	key := req.IdempotencyKey
	if key == "" {
		key = "inject:" + msg.ID()
	}

	d := &domain.Dispatch{
		ID:             uuid.New(),
		NodeID:         nodeID,
		State:          domain.DispatchStateQueued,
		Input:          msg,
		IdempotencyKey: key,
	}

	if err := h.dispatches.Create(ctx, d); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			// Повторный inject с тем же ключом возвращает существующий dispatch.
			Success(w, d)
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishNodeInput(ctx, d.ID, nodeID); err != nil {
			h.logger.Warn("failed to publish node.input", "dispatch_id", d.ID, "error", err)
		}
	}

	JSON(w, http.StatusAccepted, DataResponse{Data: d})
}
