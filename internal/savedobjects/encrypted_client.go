package savedobjects

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/encryption"
	"github.com/shaiso/actions/internal/repo"
)

// GetOptions — параметры чтения.
type GetOptions struct {
	// Namespace — namespace space'а. Пустая строка — default.
	Namespace string
}

// EncryptedClient читает и пишет saved objects с секретными атрибутами
// от имени внутреннего пользователя.
type EncryptedClient struct {
	store  Store
	crypto *encryption.Service
	types  *encryption.TypeRegistry
}

// NewEncryptedClient создаёт EncryptedClient.
// Если types == nil, используется encryption.DefaultTypeRegistry().
func NewEncryptedClient(store Store, crypto *encryption.Service, types *encryption.TypeRegistry) *EncryptedClient {
	if types == nil {
		types = encryption.DefaultTypeRegistry()
	}
	return &EncryptedClient{store: store, crypto: crypto, types: types}
}

// GetDecryptedAsInternalUser возвращает запись с расшифрованными секретами.
//
// Ошибки хранилища (repo.ErrNotFound и др.) и encryption.ErrDecrypt
// возвращаются обёрнутыми через %w.
func (c *EncryptedClient) GetDecryptedAsInternalUser(ctx context.Context, objectType, id string, opts GetOptions) (*domain.SavedObject, error) {
	rec, err := c.store.Get(ctx, objectType, id, opts.Namespace)
	if err != nil {
		return nil, err
	}

	obj := toDomain(rec)
	if !c.types.IsRegistered(objectType) || len(rec.Secret) == 0 {
		return obj, nil
	}

	public, err := decodePublic(rec)
	if err != nil {
		return nil, err
	}

	secret, err := c.crypto.Open(rec.Secret)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s/%s: %w", objectType, id, err)
	}

	merged, err := json.Marshal(encryption.Merge(public, secret))
	if err != nil {
		return nil, fmt.Errorf("marshal attributes of %s/%s: %w", objectType, id, err)
	}
	obj.Attributes = merged

	return obj, nil
}

// CreateEncrypted создаёт запись, шифруя секретные атрибуты типа.
// Возвращаемый объект содержит только открытые атрибуты.
func (c *EncryptedClient) CreateEncrypted(ctx context.Context, objectType, namespace string, attrs map[string]any) (*domain.SavedObject, error) {
	public, secret := c.types.Split(objectType, attrs)

	publicJSON, err := json.Marshal(public)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}

	var sealed []byte
	if len(secret) > 0 {
		sealed, err = c.crypto.Seal(secret)
		if err != nil {
			return nil, fmt.Errorf("encrypt attributes: %w", err)
		}
	}

	rec := &repo.Record{
		ID:         uuid.New(),
		Type:       objectType,
		Namespace:  namespace,
		Attributes: publicJSON,
		Secret:     sealed,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	return toDomain(rec), nil
}
