package httpserver

import "net/http"

// Routes groups handlers. Nil entries are not registered.
type Routes struct {
	Health         http.HandlerFunc
	SessionStatus  http.HandlerFunc
	Pricing        http.HandlerFunc
	RecentSessions http.HandlerFunc
	Purchase       http.HandlerFunc
	Events         http.Handler
	Metrics        http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.SessionStatus != nil {
		mux.Handle("/api/session", method(http.MethodGet, routes.SessionStatus))
	}
	if routes.Pricing != nil {
		mux.Handle("/api/pricing", method(http.MethodGet, routes.Pricing))
	}
	if routes.RecentSessions != nil {
		mux.Handle("/api/sessions/recent", method(http.MethodGet, routes.RecentSessions))
	}
	if routes.Purchase != nil {
		mux.Handle("/api/purchase", method(http.MethodPost, routes.Purchase))
	}
	if routes.Events != nil {
		mux.Handle("/ws", routes.Events)
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
