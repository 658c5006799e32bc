package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check, info and metrics.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Uploads collection.
	mux.HandleFunc("POST /v1/uploads", s.handleCreateUpload)
	mux.HandleFunc("GET /v1/uploads", s.handleListUploads)

	// Single upload.
	mux.HandleFunc("GET /v1/uploads/{id}", s.handleGetUpload)
	mux.HandleFunc("DELETE /v1/uploads/{id}", s.handleDeleteUpload)

	// Public content.
	mux.HandleFunc("GET /uploads/{key...}", s.handleGetContent)

	return mux
}
