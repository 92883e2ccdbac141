package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/matchpoint-app/auth-service/internal/service"
)

// maxBodyBytes — предел размера тела запроса: защищает от мусорных payload'ов.
const maxBodyBytes = 1 << 20 // 1 MiB

// Handlers держит зависимости HTTP-обработчиков.
type Handlers struct {
	auth *service.Service
}

// NewHandlers создаёт набор обработчиков поверх бизнес-логики.
func NewHandlers(auth *service.Service) *Handlers {
	return &Handlers{auth: auth}
}

// writeJSON сериализует ответ; ошибки записи в сокет игнорируются —
// клиент уже мог уйти.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(v)
}

// decodeStrict разбирает JSON-тело со строгими правилами:
// неизвестные поля и мусор после объекта — ошибка.
func decodeStrict(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}

	// Вторая порция данных в теле — тоже ошибка.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}

	return nil
}
