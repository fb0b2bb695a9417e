// handlers реализует REST-поверхность accounts-сервиса поверх бизнес-логики
// пакета service: JSON/multipart-декодирование, cookie с токенами и маппинг
// доменных ошибок через httperr.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/http/httperr"
	"github.com/pribylovaa/accounts-service/internal/http/middleware"
	"github.com/pribylovaa/accounts-service/internal/service"
)

// Handlers агрегирует зависимости (сервис + конфиг cookie/изображений).
type Handlers struct {
	Service *service.Service
	Cfg     *config.Config
}

func New(s *service.Service, cfg *config.Config) *Handlers {
	return &Handlers{Service: s, Cfg: cfg}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через httperr.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// userIDOr401 достаёт ID пользователя из контекста Auth-мидлвара.
// Отсутствие означает ошибку сборки роутера — отвечаем 401, не паникуем.
func userIDOr401(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		httperr.WriteError(w, r, service.ErrInvalidToken)
		return "", false
	}

	return id, true
}
