package taskrunner

// APIKeyScheme — схема заголовка authorization для API ключей.
const APIKeyScheme = "ApiKey"

// AuthorizationHeader формирует значение заголовка authorization из API ключа.
// ok == false, если ключа нет.
func AuthorizationHeader(apiKey string) (value string, ok bool) {
	if apiKey == "" {
		return "", false
	}
	return APIKeyScheme + " " + apiKey, true
}

// RouteStub — заглушка маршрута для потребителей, которым нужен путь запроса.
type RouteStub struct {
	Path string
	Href string
}

// SyntheticRequest — минимальный контекст авторизации и маршрутизации
// для отложенного выполнения, когда исходного запроса пользователя уже нет.
//
// Создаётся заново для каждого выполнения и не переиспользуется.
type SyntheticRequest struct {
	Headers  map[string]string
	BasePath string
	Route    RouteStub
}

// BuildSyntheticRequest собирает запрос из API ключа и base path space'а.
// Без ключа заголовки остаются пустыми.
func BuildSyntheticRequest(apiKey, basePath string) *SyntheticRequest {
	headers := make(map[string]string, 1)
	if value, ok := AuthorizationHeader(apiKey); ok {
		headers["authorization"] = value
	}

	return &SyntheticRequest{
		Headers:  headers,
		BasePath: basePath,
		Route:    RouteStub{Path: "/", Href: "/"},
	}
}

// Authorization возвращает значение заголовка authorization.
func (r *SyntheticRequest) Authorization() string {
	return r.Headers["authorization"]
}

// GetBasePath возвращает base path space'а.
func (r *SyntheticRequest) GetBasePath() string {
	return r.BasePath
}
