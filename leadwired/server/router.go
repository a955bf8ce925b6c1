package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.MiddlewareLogger)
	r.Get("/version", s.HandlerVersion)
	r.Post("/shutdown", s.HandlerShutdown)
	r.Get("/agent/tools", s.HandlerListTools)
	r.Post("/agent/tasks", s.HandlerCreateTask)
	r.Get("/agent/tasks", s.HandlerListTasks)
	r.Get("/agent/tasks/{id}", s.HandlerGetTask)
	r.Get("/agent/tasks/{id}/actions", s.HandlerListActions)
	r.Post("/agent/tasks/{id}/run", s.HandlerRunTask)
	r.Post("/agent/tasks/{id}/approve", s.HandlerApproveAction)
	r.Post("/agent/tasks/{id}/cancel", s.HandlerCancelTask)
	return r
}
