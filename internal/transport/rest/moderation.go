package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/service/moderation"
)

type moderationService interface {
	SetApprovalStatus(ctx context.Context, input moderation.SetApprovalInput) (*domain.Inquiry, error)
}

// ModerationHandler serves admin approval endpoints.
type ModerationHandler struct {
	svc moderationService
	log *slog.Logger
}

// NewModerationHandler creates a ModerationHandler.
func NewModerationHandler(svc moderationService, logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{svc: svc, log: logger.With("handler", "moderation")}
}

type setApprovalRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// SetApproval handles PUT /admin/inquiries/{id}/approval.
func (h *ModerationHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(r.Context(), h.log, w, r)
	if !ok {
		return
	}
	var req setApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}

	inq, err := h.svc.SetApprovalStatus(r.Context(), moderation.SetApprovalInput{
		InquiryID: id,
		Status:    domain.ApprovalStatus(req.Status),
		Note:      req.Note,
	})
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInquiryResponse(inq))
}
