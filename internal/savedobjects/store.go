package savedobjects

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/repo"
)

// Store — хранилище записей. Реализуется repo.SavedObjectRepo.
type Store interface {
	Create(ctx context.Context, rec *repo.Record) error
	Get(ctx context.Context, objectType, id, namespace string) (*repo.Record, error)
	Delete(ctx context.Context, objectType, id, namespace string) error
}

// Request — то, что клиентам нужно от запроса.
type Request interface {
	// Authorization возвращает значение заголовка authorization ("" если нет).
	Authorization() string

	// GetBasePath возвращает base path запроса (определяет space).
	GetBasePath() string
}

// toDomain конвертирует запись без секретов.
func toDomain(rec *repo.Record) *domain.SavedObject {
	attrs := rec.Attributes
	if len(attrs) == 0 {
		attrs = json.RawMessage("{}")
	}
	return &domain.SavedObject{
		ID:         rec.ID.String(),
		Type:       rec.Type,
		Namespace:  rec.Namespace,
		Attributes: attrs,
		CreatedAt:  rec.CreatedAt,
	}
}

func decodePublic(rec *repo.Record) (map[string]any, error) {
	public := make(map[string]any)
	if len(rec.Attributes) == 0 {
		return public, nil
	}
	if err := json.Unmarshal(rec.Attributes, &public); err != nil {
		return nil, fmt.Errorf("unmarshal attributes of %s/%s: %w", rec.Type, rec.ID, err)
	}
	return public, nil
}
