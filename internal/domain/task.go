package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/actions/internal/spaces"
)

// Типы saved objects, с которыми работает ядро.
const (
	// ActionTaskParamsType — зашифрованные параметры отложенного запуска action.
	ActionTaskParamsType = "action_task_params"

	// ActionType — сохранённый action (connector): тип, config и secrets.
	ActionType = "action"
)

// ErrInvalidTaskReference — в ссылке на task не хватает обязательных полей.
var ErrInvalidTaskReference = errors.New("invalid task reference")

// TaskReference — ссылка на одну запланированную единицу работы.
//
// Создаётся планировщиком при постановке в очередь и потребляется
// ровно одним Runner'ом. Сами параметры лежат в хранилище зашифрованными,
// ссылка содержит только указатель на них и space, в котором они созданы.
type TaskReference struct {
	// SpaceID — space (tenant), в котором был поставлен task.
	SpaceID string `json:"space_id"`

	// ActionTaskParamsID — ID записи action_task_params.
	ActionTaskParamsID string `json:"action_task_params_id"`
}

// Validate проверяет, что ссылка указывает на запись параметров.
// Пустой SpaceID допустим и означает default space. Непустой должен быть
// валидным ID space: иначе namespace, вычисленный по ID, и namespace,
// восстановленный из base path, расходятся.
func (r TaskReference) Validate() error {
	if strings.TrimSpace(r.ActionTaskParamsID) == "" {
		return ErrInvalidTaskReference
	}
	if r.SpaceID != "" {
		if err := spaces.ValidateSpaceID(r.SpaceID); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTaskReference, err)
		}
	}
	return nil
}

// ActionTaskParams — расшифрованное содержимое action_task_params.
//
// Существует только на время одного выполнения: владелец — хранилище,
// Runner получает временную копию.
type ActionTaskParams struct {
	// ActionID — ID сохранённого action, который нужно выполнить.
	ActionID string `json:"actionId"`

	// Params — параметры вызова action.
	Params map[string]any `json:"params,omitempty"`

	// APIKey — ключ, от имени которого выполняется action.
	// Пустая строка означает, что ключа нет.
	APIKey string `json:"apiKey,omitempty"`
}

// HasAPIKey возвращает true, если у task есть ключ для impersonation.
func (p *ActionTaskParams) HasAPIKey() bool {
	return p.APIKey != ""
}
