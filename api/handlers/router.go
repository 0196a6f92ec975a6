package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// NewRouter builds the API mux.
func NewRouter(service TaskService, version string, logger *zap.Logger) *http.ServeMux {
	tasks := NewTaskHandler(service, logger)
	health := NewHealthHandler(version)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tasks", tasks.Create)
	mux.HandleFunc("GET /v1/tasks", tasks.List)
	mux.HandleFunc("GET /v1/tasks/{id}", tasks.Get)
	mux.HandleFunc("GET /healthz", health.Health)
	return mux
}
