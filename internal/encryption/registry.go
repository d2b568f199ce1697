package encryption

import "github.com/shaiso/actions/internal/domain"

// TypeRegistry описывает, какие атрибуты каждого типа saved object секретные.
type TypeRegistry struct {
	types map[string]map[string]struct{}
}

// NewTypeRegistry создаёт пустой реестр.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]map[string]struct{})}
}

// DefaultTypeRegistry регистрирует типы ядра:
//   - action_task_params: apiKey
//   - action: secrets
func DefaultTypeRegistry() *TypeRegistry {
	r := NewTypeRegistry()
	r.Register(domain.ActionTaskParamsType, "apiKey")
	r.Register(domain.ActionType, "secrets")
	return r
}

// Register объявляет секретные атрибуты типа.
func (r *TypeRegistry) Register(objectType string, attributes ...string) {
	set, ok := r.types[objectType]
	if !ok {
		set = make(map[string]struct{}, len(attributes))
		r.types[objectType] = set
	}
	for _, a := range attributes {
		set[a] = struct{}{}
	}
}

// IsRegistered возвращает true, если у типа есть секретные атрибуты.
func (r *TypeRegistry) IsRegistered(objectType string) bool {
	_, ok := r.types[objectType]
	return ok
}

// Split делит атрибуты на открытые и секретные.
// Исходная map не изменяется.
func (r *TypeRegistry) Split(objectType string, attrs map[string]any) (public, secret map[string]any) {
	public = make(map[string]any, len(attrs))
	secret = make(map[string]any)

	set := r.types[objectType]
	for k, v := range attrs {
		if _, ok := set[k]; ok {
			secret[k] = v
			continue
		}
		public[k] = v
	}
	return public, secret
}

// Merge возвращает открытые атрибуты, дополненные секретными.
func Merge(public, secret map[string]any) map[string]any {
	merged := make(map[string]any, len(public)+len(secret))
	for k, v := range public {
		merged[k] = v
	}
	for k, v := range secret {
		merged[k] = v
	}
	return merged
}
