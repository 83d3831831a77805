package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/dockflow/internal/domain"
)

// DispatchRepo — репозиторий dispatch.
type DispatchRepo struct {
	pool *pgxpool.Pool
}

// NewDispatchRepo создаёт DispatchRepo.
func NewDispatchRepo(pool *pgxpool.Pool) *DispatchRepo {
	return &DispatchRepo{pool: pool}
}

const dispatchColumns = `id, node_id, state, input, action, outcome, emitted, error,
	idempotency_key, source_dispatch_id, started_at, finished_at, created_at`

// Create сохраняет новый dispatch.
//
// Если dispatch с тем же (node_id, idempotency_key) уже есть, возвращает
// ErrAlreadyExists, а d заполняется существующей записью.
func (r *DispatchRepo) Create(ctx context.Context, d *domain.Dispatch) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	input, err := json.Marshal(d.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `INSERT INTO dispatches
		(id, node_id, state, input, idempotency_key, source_dispatch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (node_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING`,
		d.ID,
		d.NodeID,
		d.State,
		input,
		nullString(d.IdempotencyKey),
		d.SourceDispatchID,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.GetByIdempotencyKey(ctx, d.NodeID, d.IdempotencyKey)
		if err != nil {
			return err
		}
		*d = *existing
		return ErrAlreadyExists
	}
	return nil
}

// GetByID возвращает dispatch по ID.
func (r *DispatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dispatch, error) {
	return scanDispatch(r.pool.QueryRow(ctx, `SELECT `+dispatchColumns+` FROM dispatches WHERE id = $1`, id))
}

// GetByIdempotencyKey возвращает dispatch узла по ключу идемпотентности.
func (r *DispatchRepo) GetByIdempotencyKey(ctx context.Context, nodeID uuid.UUID, key string) (*domain.Dispatch, error) {
	return scanDispatch(r.pool.QueryRow(ctx, `SELECT `+dispatchColumns+`
		FROM dispatches WHERE node_id = $1 AND idempotency_key = $2`, nodeID, key))
}

// DispatchFilter — параметры выборки dispatch.
type DispatchFilter struct {
	NodeID *uuid.UUID
	State  domain.DispatchState
	Limit  int
	Offset int
}

// List возвращает dispatch, новые первыми.
func (r *DispatchRepo) List(ctx context.Context, filter DispatchFilter) ([]domain.Dispatch, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+dispatchColumns+` FROM dispatches
		WHERE ($1::uuid IS NULL OR node_id = $1)
		  AND ($2::text IS NULL OR state = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		filter.NodeID,
		nullString(string(filter.State)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	return collectDispatches(rows)
}

// ListQueued возвращает самые старые dispatch в статусе QUEUED.
func (r *DispatchRepo) ListQueued(ctx context.Context, limit int) ([]domain.Dispatch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+dispatchColumns+` FROM dispatches
		WHERE state = 'QUEUED'
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queued dispatches: %w", err)
	}
	return collectDispatches(rows)
}

// Claim атомарно переводит dispatch из QUEUED в IDLE.
// ErrInvalidState — dispatch уже забрал другой воркер.
func (r *DispatchRepo) Claim(ctx context.Context, id uuid.UUID) (*domain.Dispatch, error) {
	d, err := scanDispatch(r.pool.QueryRow(ctx, `UPDATE dispatches
		SET state = 'IDLE', started_at = NOW()
		WHERE id = $1 AND state = 'QUEUED'
		RETURNING `+dispatchColumns, id))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidState
	}
	return d, err
}

// UpdateState записывает промежуточное состояние и разобранное действие.
func (r *DispatchRepo) UpdateState(ctx context.Context, id uuid.UUID, state domain.DispatchState, action string) error {
	result, err := r.pool.Exec(ctx, `UPDATE dispatches
		SET state = $2, action = COALESCE($3, action)
		WHERE id = $1`, id, state, nullString(action))
	if err != nil {
		return fmt.Errorf("update dispatch state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Finish сохраняет финальное состояние dispatch.
func (r *DispatchRepo) Finish(ctx context.Context, d *domain.Dispatch) error {
	result, err := r.pool.Exec(ctx, `UPDATE dispatches
		SET state = $2, action = $3, outcome = $4, emitted = $5, error = $6, finished_at = $7
		WHERE id = $1`,
		d.ID,
		d.State,
		nullString(d.Action),
		nullString(string(d.Outcome)),
		d.Emitted,
		nullString(d.Error),
		d.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("finish dispatch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectDispatches(rows pgx.Rows) ([]domain.Dispatch, error) {
	defer rows.Close()

	var out []domain.Dispatch
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDispatch(row rowScanner) (*domain.Dispatch, error) {
	var (
		d                              domain.Dispatch
		inputJSON                      []byte
		action, outcome, errText, idem *string
	)

	err := row.Scan(
		&d.ID,
		&d.NodeID,
		&d.State,
		&inputJSON,
		&action,
		&outcome,
		&d.Emitted,
		&errText,
		&idem,
		&d.SourceDispatchID,
		&d.StartedAt,
		&d.FinishedAt,
		&d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan dispatch: %w", err)
	}

	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &d.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
	}
	d.Action = derefString(action)
	d.Outcome = domain.OutcomeKind(derefString(outcome))
	d.Error = derefString(errText)
	d.IdempotencyKey = derefString(idem)

	return &d, nil
}
