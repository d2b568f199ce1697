package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLocker — лидерство через pg_try_advisory_lock.
//
// Advisory lock принадлежит сессии, поэтому lock и unlock выполняются
// на одном и том же соединении, взятом из пула на время удержания.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
	key  int64
}

// NewAdvisoryLocker создаёт locker для ключа key.
func NewAdvisoryLocker(pool *pgxpool.Pool, key int64) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, key: key}
}

// TryLock пытается взять lock. Если lock взят, release освобождает его
// и возвращает соединение в пул; иначе release == nil.
func (l *AdvisoryLocker) TryLock(ctx context.Context) (release func(), ok bool, err error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire conn: %w", err)
	}

	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", l.key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	release = func() {
		// ctx тика может быть уже отменён — unlock выполняем в фоне
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", l.key)
		conn.Release()
	}
	return release, true, nil
}
