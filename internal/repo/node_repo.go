package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/dockflow/internal/domain"
)

// NodeRepo — репозиторий узлов.
type NodeRepo struct {
	pool *pgxpool.Pool
}

// NewNodeRepo создаёт NodeRepo.
func NewNodeRepo(pool *pgxpool.Pool) *NodeRepo {
	return &NodeRepo{pool: pool}
}

// nodeProps — типизированные свойства узла, хранятся одним JSONB.
type nodeProps struct {
	ResourceExpr  domain.Property `json:"resource_expr,omitempty"`
	Options       domain.Property `json:"options,omitempty"`
	Image         domain.Property `json:"image,omitempty"`
	CreateOptions domain.Property `json:"create_options,omitempty"`
	StartOptions  domain.Property `json:"start_options,omitempty"`
}

const nodeColumns = `id, name, kind, action, resource_id, command, pull_image, props, wires, created_at, updated_at`

func encodeNode(n *domain.Node) (props, wires []byte, err error) {
	props, err = json.Marshal(nodeProps{
		ResourceExpr:  n.ResourceExpr,
		Options:       n.Options,
		Image:         n.Image,
		CreateOptions: n.CreateOptions,
		StartOptions:  n.StartOptions,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal props: %w", err)
	}

	ws := n.Wires
	if ws == nil {
		ws = []uuid.UUID{}
	}
	wires, err = json.Marshal(ws)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal wires: %w", err)
	}
	return props, wires, nil
}

func stampNode(n *domain.Node) {
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
}

// Create создаёт узел. Имя уникально.
func (r *NodeRepo) Create(ctx context.Context, n *domain.Node) error {
	stampNode(n)
	props, wires, err := encodeNode(n)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO nodes (`+nodeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		n.ID,
		n.Name,
		n.Kind,
		nullString(n.Action),
		nullString(n.ResourceID),
		nullString(n.Command),
		n.PullImage,
		props,
		wires,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: node %q", ErrAlreadyExists, n.Name)
	}
	if err != nil {
		return fmt.Errorf("insert node: %w", err)
	}
	return nil
}

// Upsert создаёт узел или обновляет существующий с тем же именем.
// ID существующего узла сохраняется и записывается в n.
func (r *NodeRepo) Upsert(ctx context.Context, n *domain.Node) error {
	stampNode(n)
	props, wires, err := encodeNode(n)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, `INSERT INTO nodes (`+nodeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (name) DO UPDATE
		SET kind = EXCLUDED.kind, action = EXCLUDED.action, resource_id = EXCLUDED.resource_id,
		    command = EXCLUDED.command, pull_image = EXCLUDED.pull_image, props = EXCLUDED.props,
		    wires = EXCLUDED.wires, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		n.ID,
		n.Name,
		n.Kind,
		nullString(n.Action),
		nullString(n.ResourceID),
		nullString(n.Command),
		n.PullImage,
		props,
		wires,
		n.CreatedAt,
		n.UpdatedAt,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert node: %w", err)
	}
	return nil
}

// GetByID возвращает узел по ID.
func (r *NodeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Node, error) {
	return scanNode(r.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id))
}

// GetByName возвращает узел по имени.
func (r *NodeRepo) GetByName(ctx context.Context, name string) (*domain.Node, error) {
	return scanNode(r.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE name = $1`, name))
}

// NodeFilter — параметры выборки узлов.
type NodeFilter struct {
	Kind   domain.ResourceKind
	Limit  int
	Offset int
}

// List возвращает узлы, отсортированные по имени.
func (r *NodeRepo) List(ctx context.Context, filter NodeFilter) ([]domain.Node, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+nodeColumns+` FROM nodes
		WHERE ($1::text IS NULL OR kind = $1)
		ORDER BY name ASC
		LIMIT $2 OFFSET $3`,
		nullString(string(filter.Kind)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// Update сохраняет изменения узла.
func (r *NodeRepo) Update(ctx context.Context, n *domain.Node) error {
	n.UpdatedAt = time.Now()
	props, wires, err := encodeNode(n)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, `UPDATE nodes
		SET name = $2, kind = $3, action = $4, resource_id = $5, command = $6,
		    pull_image = $7, props = $8, wires = $9, updated_at = $10
		WHERE id = $1`,
		n.ID,
		n.Name,
		n.Kind,
		nullString(n.Action),
		nullString(n.ResourceID),
		nullString(n.Command),
		n.PullImage,
		props,
		wires,
		n.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: node %q", ErrAlreadyExists, n.Name)
	}
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет узел вместе с его dispatch и расписаниями.
func (r *NodeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNode(row rowScanner) (*domain.Node, error) {
	var (
		n                       domain.Node
		action, resourceID, cmd *string
		propsJSON, wiresJSON    []byte
	)

	err := row.Scan(
		&n.ID,
		&n.Name,
		&n.Kind,
		&action,
		&resourceID,
		&cmd,
		&n.PullImage,
		&propsJSON,
		&wiresJSON,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan node: %w", err)
	}

	n.Action = derefString(action)
	n.ResourceID = derefString(resourceID)
	n.Command = derefString(cmd)

	var props nodeProps
	if len(propsJSON) > 0 {
		if err := json.Unmarshal(propsJSON, &props); err != nil {
			return nil, fmt.Errorf("unmarshal props: %w", err)
		}
	}
	n.ResourceExpr = props.ResourceExpr
	n.Options = props.Options
	n.Image = props.Image
	n.CreateOptions = props.CreateOptions
	n.StartOptions = props.StartOptions

	if len(wiresJSON) > 0 {
		if err := json.Unmarshal(wiresJSON, &n.Wires); err != nil {
			return nil, fmt.Errorf("unmarshal wires: %w", err)
		}
	}

	return &n, nil
}

// isUniqueViolation проверяет код PostgreSQL 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
