// Package spaces отображает space (tenant) на namespace хранилища и URL base path.
//
// Default space живёт в пустом namespace и без префикса пути,
// остальные — в namespace с тем же ID и под префиксом /s/<space_id>.
package spaces

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultSpaceID — ID space по умолчанию.
const DefaultSpaceID = "default"

// ErrInvalidSpaceID — ID space не соответствует допустимому формату.
var ErrInvalidSpaceID = errors.New("invalid space id")

var spaceIDPattern = regexp.MustCompile(`^[a-z0-9_\-]+$`)

// spacePathPattern выделяет ID space из начала пути.
var spacePathPattern = regexp.MustCompile(`^/s/([a-z0-9_\-]+)`)

// ValidateSpaceID проверяет формат ID space.
func ValidateSpaceID(spaceID string) error {
	if !spaceIDPattern.MatchString(spaceID) {
		return fmt.Errorf("%w: %q", ErrInvalidSpaceID, spaceID)
	}
	return nil
}

// IsDefault возвращает true для default space (в том числе для пустого ID).
func IsDefault(spaceID string) bool {
	return spaceID == "" || spaceID == DefaultSpaceID
}

// SpaceIDToNamespace возвращает namespace хранилища для space.
func SpaceIDToNamespace(spaceID string) string {
	if IsDefault(spaceID) {
		return ""
	}
	return spaceID
}

// NamespaceToSpaceID — обратное отображение для SpaceIDToNamespace.
func NamespaceToSpaceID(namespace string) string {
	if namespace == "" {
		return DefaultSpaceID
	}
	return namespace
}

// BasePathResolver строит base path для space.
type BasePathResolver struct {
	// ServerBasePath — общий префикс сервера (например, "/kbn"). Может быть пустым.
	ServerBasePath string
}

// NewBasePathResolver создаёт resolver, нормализуя префикс сервера.
func NewBasePathResolver(serverBasePath string) *BasePathResolver {
	return &BasePathResolver{ServerBasePath: normalizeBasePath(serverBasePath)}
}

// GetBasePath возвращает base path для space.
func (r *BasePathResolver) GetBasePath(spaceID string) string {
	if IsDefault(spaceID) {
		return r.ServerBasePath
	}
	return r.ServerBasePath + "/s/" + spaceID
}

// SpaceIDFromPath извлекает ID space из base path.
// Если путь не содержит /s/<id> после префикса сервера — default space.
func (r *BasePathResolver) SpaceIDFromPath(basePath string) string {
	path := basePath
	if r.ServerBasePath != "" {
		if !strings.HasPrefix(path, r.ServerBasePath) {
			return DefaultSpaceID
		}
		path = strings.TrimPrefix(path, r.ServerBasePath)
	}

	match := spacePathPattern.FindStringSubmatch(path)
	if match == nil {
		return DefaultSpaceID
	}
	return match[1]
}

// NamespaceFromPath — namespace для base path.
func (r *BasePathResolver) NamespaceFromPath(basePath string) string {
	return SpaceIDToNamespace(r.SpaceIDFromPath(basePath))
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
