// Package config загружает конфигурацию процессов actions.
//
// Источники (по убыванию приоритета):
//   - переменные окружения (DB_URL, RABBITMQ_URL, ...)
//   - YAML файл из CONFIG_FILE (если задан)
//   - значения по умолчанию
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/shaiso/actions/internal/janitor"
	"github.com/shaiso/actions/internal/mq"
	"github.com/shaiso/actions/internal/repo"
)

// ErrInvalidConfig — конфигурация не прошла проверку.
var ErrInvalidConfig = errors.New("invalid config")

// Config — конфигурация процесса.
type Config struct {
	// DatabaseURL — строка подключения к PostgreSQL.
	DatabaseURL string `mapstructure:"db_url"`

	// RabbitMQURL — адрес RabbitMQ.
	RabbitMQURL string `mapstructure:"rabbitmq_url"`

	// WorkerPort — порт /healthz и /metrics.
	WorkerPort string `mapstructure:"worker_port"`

	// LogLevel — DEBUG, INFO, WARN, ERROR.
	LogLevel string `mapstructure:"log_level"`

	// LogFormat — json или text.
	LogFormat string `mapstructure:"log_format"`

	// EncryptionKey — ключ шифрования saved objects (base64, 32 байта).
	EncryptionKey string `mapstructure:"encryption_key"`

	// ServerBasePath — общий префикс base path (например, "/kbn").
	ServerBasePath string `mapstructure:"server_base_path"`

	// WorkerPrefetch — prefetch канала actions.tasks.run и число tasks в работе одновременно.
	WorkerPrefetch int `mapstructure:"worker_prefetch"`

	// JanitorSchedule — cron-выражение уборки action_task_params.
	JanitorSchedule string `mapstructure:"janitor_schedule"`

	// JanitorMaxAge — возраст записи, после которого она удаляется.
	JanitorMaxAge time.Duration `mapstructure:"janitor_max_age"`

	// JanitorBatchSize — записей за одну пачку удаления.
	JanitorBatchSize int `mapstructure:"janitor_batch_size"`
}

// defaults — значения по умолчанию для всех ключей.
// Ключ без default не подхватывается из окружения при Unmarshal.
var defaults = map[string]any{
	"db_url":             repo.DefaultDSN,
	"rabbitmq_url":       mq.DefaultURL(),
	"worker_port":        "8082",
	"log_level":          "INFO",
	"log_format":         "json",
	"encryption_key":     "",
	"server_base_path":   "",
	"worker_prefetch":    5,
	"janitor_schedule":   "*/15 * * * *",
	"janitor_max_age":    24 * time.Hour,
	"janitor_batch_size": 100,
}

// Load читает конфигурацию из окружения и CONFIG_FILE.
func Load() (*Config, error) {
	return load(os.Getenv("CONFIG_FILE"))
}

func load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// Validate проверяет значения, без которых процесс не может работать.
func (c *Config) Validate() error {
	var errs []error

	if c.EncryptionKey == "" {
		errs = append(errs, fmt.Errorf("%w: encryption_key is required", ErrInvalidConfig))
	}
	if c.WorkerPrefetch <= 0 {
		errs = append(errs, fmt.Errorf("%w: worker_prefetch must be positive", ErrInvalidConfig))
	}
	if c.JanitorMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("%w: janitor_max_age must be positive", ErrInvalidConfig))
	}
	if c.JanitorBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: janitor_batch_size must be positive", ErrInvalidConfig))
	}
	if err := janitor.ValidateSchedule(c.JanitorSchedule); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	return errors.Join(errs...)
}

// ListenAddr возвращает адрес HTTP-сервера (":8082").
func (c *Config) ListenAddr() string {
	return ":" + strings.TrimPrefix(c.WorkerPort, ":")
}
