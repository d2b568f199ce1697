package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SavedObject — запись хранилища saved objects.
//
// Attributes хранит JSON атрибутов; для зашифрованных типов после
// расшифровки туда же подмешиваются секретные атрибуты.
type SavedObject struct {
	// ID — идентификатор записи.
	ID string `json:"id"`

	// Type — тип записи ("action", "action_task_params", ...).
	Type string `json:"type"`

	// Namespace — namespace space'а. Пустая строка — default.
	Namespace string `json:"namespace,omitempty"`

	// Attributes — атрибуты в JSON.
	Attributes json.RawMessage `json:"attributes"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// DecodeAttributes распаковывает атрибуты в v.
func (o *SavedObject) DecodeAttributes(v any) error {
	if len(o.Attributes) == 0 {
		return fmt.Errorf("saved object %s/%s has no attributes", o.Type, o.ID)
	}
	if err := json.Unmarshal(o.Attributes, v); err != nil {
		return fmt.Errorf("decode %s attributes: %w", o.Type, err)
	}
	return nil
}

// Action — атрибуты сохранённого action (connector).
type Action struct {
	// ActionTypeID — тип action (".webhook", ".server-log").
	ActionTypeID string `json:"actionTypeId"`

	// Name — имя action для людей.
	Name string `json:"name"`

	// Config — несекретная конфигурация.
	Config map[string]any `json:"config,omitempty"`

	// Secrets — секретная конфигурация (хранится зашифрованной).
	Secrets map[string]any `json:"secrets,omitempty"`
}
