package rest

import (
	"net/http"

	"github.com/heartmarshall/inquiry-backend/internal/transport/middleware"
)

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	Inquiries  *InquiryHandler
	Moderation *ModerationHandler
	Health     *HealthHandler

	// Global wraps every route; SendLimit wraps only message appends.
	Global    middleware.Middleware
	SendLimit middleware.Middleware
}

// NewRouter registers all routes.
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", d.Health.Live)
	mux.HandleFunc("GET /ready", d.Health.Ready)
	mux.HandleFunc("GET /health", d.Health.Health)

	mux.HandleFunc("POST /api/inquiries", d.Inquiries.Create)
	mux.HandleFunc("GET /api/inquiries", d.Inquiries.List)
	mux.HandleFunc("GET /api/inquiries/{id}", d.Inquiries.Get)
	mux.HandleFunc("GET /api/inquiries/{id}/quota", d.Inquiries.Quota)
	send := http.Handler(http.HandlerFunc(d.Inquiries.SendMessage))
	if d.SendLimit != nil {
		send = d.SendLimit(send)
	}
	mux.Handle("POST /api/inquiries/{id}/messages", send)

	mux.Handle("PUT /admin/inquiries/{id}/approval", middleware.RequireModerator(http.HandlerFunc(d.Moderation.SetApproval)))

	if d.Global == nil {
		return mux
	}
	return d.Global(mux)
}
