package savedobjects

import (
	"context"
	"log/slog"

	"github.com/shaiso/actions/internal/domain"
	"github.com/shaiso/actions/internal/spaces"
)

// ScopedClient — клиент, привязанный к запросу.
type ScopedClient struct {
	store         Store
	namespace     string
	authenticated bool
	logger        *slog.Logger
}

// Namespace возвращает namespace, к которому привязан клиент.
func (c *ScopedClient) Namespace() string {
	return c.namespace
}

// Get возвращает запись из namespace клиента (без секретов).
func (c *ScopedClient) Get(ctx context.Context, objectType, id string) (*domain.SavedObject, error) {
	rec, err := c.store.Get(ctx, objectType, id, c.namespace)
	if err != nil {
		return nil, err
	}
	return toDomain(rec), nil
}

// Delete удаляет запись из namespace клиента.
func (c *ScopedClient) Delete(ctx context.Context, objectType, id string) error {
	c.logger.Debug("deleting saved object",
		"type", objectType,
		"id", id,
		"namespace", c.namespace,
		"authenticated", c.authenticated,
	)
	return c.store.Delete(ctx, objectType, id, c.namespace)
}

// ClientFactory создаёт ScopedClient для запроса.
type ClientFactory struct {
	store     Store
	basePaths *spaces.BasePathResolver
	logger    *slog.Logger
}

// NewClientFactory создаёт ClientFactory.
func NewClientFactory(store Store, basePaths *spaces.BasePathResolver, logger *slog.Logger) *ClientFactory {
	if basePaths == nil {
		basePaths = spaces.NewBasePathResolver("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientFactory{store: store, basePaths: basePaths, logger: logger}
}

// GetScopedClient возвращает клиент для space, определённого по base path запроса.
func (f *ClientFactory) GetScopedClient(req Request) *ScopedClient {
	return &ScopedClient{
		store:         f.store,
		namespace:     f.basePaths.NamespaceFromPath(req.GetBasePath()),
		authenticated: req.Authorization() != "",
		logger:        f.logger,
	}
}
