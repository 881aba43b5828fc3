package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
	"github.com/heartmarshall/inquiry-backend/internal/service/conversation"
)

type conversationService interface {
	CreateInquiry(ctx context.Context, input conversation.CreateInquiryInput) (*domain.Inquiry, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error)
	SendMessage(ctx context.Context, input conversation.SendMessageInput) (*domain.Inquiry, error)
	ListConversations(ctx context.Context, input conversation.ListInput) ([]domain.InquirySummary, int, error)
	Quota(ctx context.Context, id uuid.UUID) (*conversation.QuotaStatus, error)
}

// InquiryHandler serves the participant-facing inquiry endpoints.
type InquiryHandler struct {
	svc conversationService
	log *slog.Logger
}

// NewInquiryHandler creates an InquiryHandler.
func NewInquiryHandler(svc conversationService, logger *slog.Logger) *InquiryHandler {
	return &InquiryHandler{svc: svc, log: logger.With("handler", "inquiry")}
}

type subjectDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type createInquiryRequest struct {
	CounterpartID  string     `json:"counterpartId"`
	Subject        subjectDTO `json:"subject"`
	InitialMessage string     `json:"initialMessage"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type messageResponse struct {
	ID                string    `json:"id"`
	Seq               int       `json:"seq"`
	SenderID          string    `json:"senderId"`
	Text              string    `json:"text"`
	Encoding          string    `json:"encoding"`
	IsLegacyEncrypted bool      `json:"isLegacyEncrypted"`
	SentAt            time.Time `json:"sentAt"`
}

type inquiryResponse struct {
	ID             string            `json:"id"`
	InitiatorID    string            `json:"initiatorId"`
	CounterpartID  string            `json:"counterpartId"`
	Subject        subjectDTO        `json:"subject"`
	InitialMessage string            `json:"initialMessage"`
	ApprovalStatus string            `json:"approvalStatus"`
	Status         string            `json:"status"`
	ChatLog        []messageResponse `json:"chatLog"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type summaryResponse struct {
	ID             string     `json:"id"`
	InitiatorID    string     `json:"initiatorId"`
	CounterpartID  string     `json:"counterpartId"`
	Subject        subjectDTO `json:"subject"`
	ApprovalStatus string     `json:"approvalStatus"`
	Status         string     `json:"status"`
	MessageCount   int        `json:"messageCount"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type listResponse struct {
	Items  []summaryResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type countsDTO struct {
	PerUser int `json:"perUser"`
	Total   int `json:"total"`
}

type quotaResponse struct {
	Used      countsDTO `json:"used"`
	Remaining countsDTO `json:"remaining"`
	Limits    countsDTO `json:"limits"`
	CanSend   bool      `json:"canSend"`
	Reason    string    `json:"reason,omitempty"`
}

// Create handles POST /api/inquiries.
func (h *InquiryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInquiryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}

	input := conversation.CreateInquiryInput{
		Subject:        domain.SubjectRef{Kind: domain.SubjectKind(req.Subject.Kind)},
		InitialMessage: req.InitialMessage,
	}
	var errs []domain.FieldError
	if req.CounterpartID != "" {
		id, err := uuid.Parse(req.CounterpartID)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "counterpartId", Message: "must be a UUID"})
		}
		input.CounterpartID = id
	}
	if req.Subject.ID != "" {
		id, err := uuid.Parse(req.Subject.ID)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "subject.id", Message: "must be a UUID"})
		}
		input.Subject.ID = id
	}
	if len(errs) > 0 {
		writeDomainError(r.Context(), h.log, w, domain.NewValidationErrors(errs))
		return
	}

	inq, err := h.svc.CreateInquiry(r.Context(), input)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	w.Header().Set("Location", "/api/inquiries/"+inq.ID.String())
	writeJSON(w, http.StatusCreated, toInquiryResponse(inq))
}

// Get handles GET /api/inquiries/{id}.
func (h *InquiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inq, err := h.svc.GetConversation(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInquiryResponse(inq))
}

// List handles GET /api/inquiries?role=initiator|counterpart&limit&offset.
func (h *InquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", conversation.DefaultLimit)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	role := domain.ParticipantRole(r.URL.Query().Get("role"))
	if role == "" {
		role = domain.RoleInitiator
	}

	items, total, err := h.svc.ListConversations(r.Context(), conversation.ListInput{Role: role, Limit: limit, Offset: offset})
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}

	resp := listResponse{Items: make([]summaryResponse, 0, len(items)), Total: total, Limit: limit, Offset: offset}
	for _, s := range items {
		resp.Items = append(resp.Items, toSummaryResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SendMessage handles POST /api/inquiries/{id}/messages.
func (h *InquiryHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}

	inq, err := h.svc.SendMessage(r.Context(), conversation.SendMessageInput{InquiryID: id, Body: req.Body})
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInquiryResponse(inq))
}

// Quota handles GET /api/inquiries/{id}/quota.
func (h *InquiryHandler) Quota(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	q, err := h.svc.Quota(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotaResponse{
		Used:      countsDTO{PerUser: q.Used.PerUser, Total: q.Used.Total},
		Remaining: countsDTO{PerUser: q.Remaining.PerUser, Total: q.Remaining.Total},
		Limits:    countsDTO{PerUser: q.Limits.MaxPerUser, Total: q.Limits.MaxTotal},
		CanSend:   q.CanSend,
		Reason:    string(q.Reason),
	})
}

func (h *InquiryHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return parsePathID(r.Context(), h.log, w, r)
}

func parsePathID(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDomainError(ctx, log, w, domain.NewValidationError("id", "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func toInquiryResponse(inq *domain.Inquiry) inquiryResponse {
	resp := inquiryResponse{
		ID:             inq.ID.String(),
		InitiatorID:    inq.InitiatorID.String(),
		CounterpartID:  inq.CounterpartID.String(),
		Subject:        subjectDTO{Kind: string(inq.Subject.Kind), ID: inq.Subject.ID.String()},
		InitialMessage: inq.InitialMessage,
		ApprovalStatus: string(inq.ApprovalStatus),
		Status:         string(inq.Status),
		ChatLog:        make([]messageResponse, 0, len(inq.ChatLog)),
		CreatedAt:      inq.CreatedAt,
		UpdatedAt:      inq.UpdatedAt,
	}
	for _, m := range inq.ChatLog {
		msg := messageResponse{
			ID:       m.ID.String(),
			Seq:      m.Seq,
			SenderID: m.SenderID.String(),
			Text:     m.Body,
			Encoding: string(domain.EncodingPlain),
			SentAt:   m.SentAt,
		}
		if m.Decoded != nil {
			msg.Text = m.Decoded.Text
			msg.Encoding = string(m.Decoded.Encoding)
			msg.IsLegacyEncrypted = m.Decoded.IsLegacyEncrypted()
		}
		resp.ChatLog = append(resp.ChatLog, msg)
	}
	return resp
}

func toSummaryResponse(s domain.InquirySummary) summaryResponse {
	return summaryResponse{
		ID:             s.ID.String(),
		InitiatorID:    s.InitiatorID.String(),
		CounterpartID:  s.CounterpartID.String(),
		Subject:        subjectDTO{Kind: string(s.Subject.Kind), ID: s.Subject.ID.String()},
		ApprovalStatus: string(s.ApprovalStatus),
		Status:         string(s.Status),
		MessageCount:   s.MessageCount,
		LastMessageAt:  s.LastMessageAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
