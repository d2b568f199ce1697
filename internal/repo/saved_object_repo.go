package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation — код ошибки PostgreSQL при нарушении уникальности.
const pgUniqueViolation = "23505"

// Record — строка таблицы saved_objects.
type Record struct {
	ID        uuid.UUID
	Type      string
	Namespace string

	// Attributes — открытые атрибуты (JSON).
	Attributes []byte

	// Secret — зашифрованные атрибуты. nil, если у типа нет секретов.
	Secret []byte

	CreatedAt time.Time
}

// SavedObjectRepo — репозиторий saved objects.
type SavedObjectRepo struct {
	pool *pgxpool.Pool
}

// NewSavedObjectRepo создаёт новый SavedObjectRepo.
func NewSavedObjectRepo(pool *pgxpool.Pool) *SavedObjectRepo {
	return &SavedObjectRepo{pool: pool}
}

// Create вставляет новую запись.
func (r *SavedObjectRepo) Create(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO saved_objects (id, type, namespace, attributes, secret, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.Type,
		rec.Namespace,
		rec.Attributes,
		rec.Secret,
		rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return objectError(ErrAlreadyExists, rec.Type, rec.ID.String())
		}
		return fmt.Errorf("insert saved object: %w", err)
	}
	return nil
}

// Get возвращает запись по типу, ID и namespace.
func (r *SavedObjectRepo) Get(ctx context.Context, objectType, id, namespace string) (*Record, error) {
	objectID, err := uuid.Parse(id)
	if err != nil {
		// Невалидный ID не может существовать в таблице
		return nil, objectError(ErrNotFound, objectType, id)
	}

	query := `
		SELECT id, type, namespace, attributes, secret, created_at
		FROM saved_objects
		WHERE type = $1 AND id = $2 AND namespace = $3
	`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, objectType, objectID, namespace))
	if errors.Is(err, ErrNotFound) {
		return nil, objectError(ErrNotFound, objectType, id)
	}
	return rec, err
}

// Delete удаляет запись. Возвращает ErrNotFound, если записи нет.
func (r *SavedObjectRepo) Delete(ctx context.Context, objectType, id, namespace string) error {
	objectID, err := uuid.Parse(id)
	if err != nil {
		return objectError(ErrNotFound, objectType, id)
	}

	result, err := r.pool.Exec(ctx, `
		DELETE FROM saved_objects WHERE type = $1 AND id = $2 AND namespace = $3
	`, objectType, objectID, namespace)
	if err != nil {
		return fmt.Errorf("delete saved object: %w", err)
	}
	if result.RowsAffected() == 0 {
		return objectError(ErrNotFound, objectType, id)
	}
	return nil
}

// ListOlderThan возвращает записи типа, созданные раньше before, во всех namespace.
func (r *SavedObjectRepo) ListOlderThan(ctx context.Context, objectType string, before time.Time, limit int) ([]Record, error) {
	query := `
		SELECT id, type, namespace, attributes, secret, created_at
		FROM saved_objects
		WHERE type = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, objectType, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list saved objects: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// DeleteByIDs удаляет записи типа по ID во всех namespace.
// Возвращает количество удалённых строк.
func (r *SavedObjectRepo) DeleteByIDs(ctx context.Context, objectType string, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
		DELETE FROM saved_objects WHERE type = $1 AND id = ANY($2)
	`, objectType, ids)
	if err != nil {
		return 0, fmt.Errorf("delete saved objects: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

// scanRecord читает запись из pgx.Row (pgx.Rows тоже реализует Scan).
func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.Type,
		&rec.Namespace,
		&rec.Attributes,
		&rec.Secret,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan saved object: %w", err)
	}
	return &rec, nil
}
