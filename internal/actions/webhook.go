package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/actions/internal/domain"
)

const (
	// WebhookTypeID — ID типа webhook.
	WebhookTypeID = ".webhook"

	defaultWebhookTimeout = 30 * time.Second
)

// WebhookType — action типа ".webhook".
//
// Config:
//   - url (string): URL для запроса (обязательно)
//   - method (string): "post" или "put". Default: post
//   - headers (map[string]string): HTTP-заголовки
//
// Secrets (опционально, вместе):
//   - user, password: basic auth
//
// Params:
//   - body (string): тело запроса
//
// Результат:
//   - 2xx — ok, Data: status_code, body
//   - 429 — ошибка с повтором (Retry-After, если есть)
//   - 5xx — ошибка с повтором
//   - прочие 4xx — ошибка без повтора
//   - сетевая ошибка — ошибка с повтором
type WebhookType struct {
	client *http.Client
	now    func() time.Time
}

// NewWebhookType создаёт WebhookType с HTTP-клиентом.
func NewWebhookType(client *http.Client) *WebhookType {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookType{client: client, now: time.Now}
}

// ID реализует ActionType.
func (t *WebhookType) ID() string { return WebhookTypeID }

// Name реализует ActionType.
func (t *WebhookType) Name() string { return "Webhook" }

// ValidateConfig реализует ActionType.
func (t *WebhookType) ValidateConfig(config, secrets map[string]any) error {
	rawURL := getString(config, "url", "")
	if rawURL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) url", ErrInvalidConfig)
	}

	switch strings.ToLower(getString(config, "method", "post")) {
	case "post", "put":
	default:
		return fmt.Errorf("%w: method must be post or put", ErrInvalidConfig)
	}

	user := getString(secrets, "user", "")
	password := getString(secrets, "password", "")
	if (user == "") != (password == "") {
		return fmt.Errorf("%w: user and password must be set together", ErrInvalidConfig)
	}
	return nil
}

// ValidateParams реализует ActionType.
func (t *WebhookType) ValidateParams(params map[string]any) error {
	if body, ok := params["body"]; ok && body != nil {
		if _, ok := body.(string); !ok {
			return fmt.Errorf("%w: body must be a string", ErrInvalidParams)
		}
	}
	return nil
}

// Execute выполняет HTTP-запрос.
func (t *WebhookType) Execute(ctx context.Context, opts TypeExecutorOptions) (*domain.ExecutorResult, error) {
	method := strings.ToUpper(getString(opts.Config, "method", "post"))
	target := getString(opts.Config, "url", "")

	// Таймаут
	ctx, cancel := context.WithTimeout(ctx, defaultWebhookTimeout)
	defer cancel()

	var bodyReader io.Reader
	if body := getString(opts.Params, "body", ""); body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	setHeaders(req, opts.Config)
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if user := getString(opts.Secrets, "user", ""); user != "" {
		req.SetBasicAuth(user, getString(opts.Secrets, "password", ""))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		// Инфраструктурная ошибка — можно повторить
		return domain.Failed(opts.ActionID,
			fmt.Sprintf("error calling webhook: %v", err),
			domain.RetryNow(),
		), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Failed(opts.ActionID,
			fmt.Sprintf("error reading webhook response: %v", err),
			domain.RetryNow(),
		), nil
	}

	data := buildOutputs(resp, respBody)

	switch {
	case resp.StatusCode < 300:
		return domain.OK(opts.ActionID, data), nil

	case resp.StatusCode == http.StatusTooManyRequests:
		result := domain.Failed(opts.ActionID,
			fmt.Sprintf("error calling webhook, retry later: HTTP %d", resp.StatusCode),
			t.retryAfter(resp.Header.Get("Retry-After")),
		)
		result.Data = data
		return result, nil

	case resp.StatusCode >= 500:
		result := domain.Failed(opts.ActionID,
			fmt.Sprintf("error calling webhook, retry later: HTTP %d", resp.StatusCode),
			domain.RetryNow(),
		)
		result.ServiceMessage = truncate(string(respBody), 200)
		result.Data = data
		return result, nil

	default:
		result := domain.Failed(opts.ActionID,
			fmt.Sprintf("error calling webhook, invalid response: HTTP %d", resp.StatusCode),
			nil,
		)
		result.ServiceMessage = truncate(string(respBody), 200)
		result.Data = data
		return result, nil
	}
}

// retryAfter разбирает заголовок Retry-After: секунды или HTTP-дата.
func (t *WebhookType) retryAfter(header string) *domain.RetryHint {
	header = strings.TrimSpace(header)
	if header == "" {
		return domain.RetryNow()
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return domain.RetryAfter(t.now().Add(time.Duration(seconds) * time.Second))
	}
	if at, err := http.ParseTime(header); err == nil {
		return domain.RetryAfter(at)
	}
	return domain.RetryNow()
}

// buildOutputs формирует данные результата из HTTP-ответа.
func buildOutputs(resp *http.Response, body []byte) map[string]any {
	// Парсим body: пробуем JSON, иначе строка
	var parsedBody any
	if err := json.Unmarshal(body, &parsedBody); err != nil {
		parsedBody = string(body)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        parsedBody,
	}
}

// getString извлекает строку из map с default значением.
func getString(m map[string]any, key, defaultVal string) string {
	if val, ok := m[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}

// setHeaders устанавливает заголовки из config.
func setHeaders(req *http.Request, config map[string]any) {
	headers, ok := config["headers"]
	if !ok || headers == nil {
		return
	}

	switch h := headers.(type) {
	case map[string]any:
		for key, val := range h {
			if s, ok := val.(string); ok {
				req.Header.Set(key, s)
			}
		}
	case map[string]string:
		for key, val := range h {
			req.Header.Set(key, val)
		}
	}
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

