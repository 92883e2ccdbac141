// middleware содержит HTTP-middleware публичного API:
// request-id, логирование, восстановление после паник, таймаут запроса
// и метрики Prometheus.
package middleware

import "net/http"

// Middleware — стандартная сигнатура обёртки поверх http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain применяет цепочку middleware к обработчику.
// Первый элемент списка оказывается самым внешним.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}

// statusWriter запоминает статус и размер ответа для логов и метрик.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err
}
