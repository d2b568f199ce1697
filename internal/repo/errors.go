package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — saved object с таким (type, id, namespace) нет.
	ErrNotFound = errors.New("saved object not found")

	// ErrAlreadyExists — saved object с таким (type, id, namespace) уже есть.
	ErrAlreadyExists = errors.New("saved object already exists")
)

// objectError добавляет к sentinel-ошибке тип и ID объекта.
func objectError(sentinel error, objectType, id string) error {
	return fmt.Errorf("%w: %s/%s", sentinel, objectType, id)
}
