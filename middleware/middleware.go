package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// CORSMiddleware разрешает запросы с любого источника; API только на чтение
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter ограничивает общую частоту запросов к серверу
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *utils.ETLLogger
}

// NewRateLimiter создает ограничитель; rps <= 0 отключает ограничение
func NewRateLimiter(rps float64, burst int, logger *utils.ETLLogger) *RateLimiter {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst), logger: logger}
}

// Handler реализует middleware ограничения частоты
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			rl.logger.Warn("Превышен лимит запросов: %s %s от %s", r.Method, r.URL.Path, r.RemoteAddr)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Слишком много запросов", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
