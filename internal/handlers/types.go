package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"practice_app_echo/internal/models"
)

// MarkPaidRequest is the body of the mark-paid endpoints
type MarkPaidRequest struct {
	PaymentTypeID   uint             `json:"paymentTypeId"`
	Amount          *decimal.Decimal `json:"amount"`
	ReferenceNumber string           `json:"referenceNumber"`
	Notes           string           `json:"notes"`
	TransactionID   string           `json:"transactionId"`
	ReceiptURL      string           `json:"receiptUrl"`
}

// RefundRequest is the body of POST /payments/:paymentId/refund
type RefundRequest struct {
	RefundAmount decimal.Decimal `json:"refundAmount"`
	Notes        string          `json:"notes"`
}

// StatusRequest is the body of PUT /payments/:paymentId/status
type StatusRequest struct {
	Status string `json:"status"`
}

// PaymentResponse is the external form of a ledger row
type PaymentResponse struct {
	ID              uint                 `json:"id"`
	UUID            string               `json:"uuid"`
	UserID          uint                 `json:"userId"`
	SessionID       uint                 `json:"sessionId"`
	SessionType     models.SessionType   `json:"sessionType"`
	PaymentTypeID   uint                 `json:"paymentTypeId"`
	PaymentTypeName string               `json:"paymentTypeName,omitempty"`
	Amount          decimal.Decimal      `json:"amount"`
	PaymentDate     time.Time            `json:"paymentDate"`
	ReferenceNumber string               `json:"referenceNumber,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	TransactionID   string               `json:"transactionId,omitempty"`
	ReceiptURL      string               `json:"receiptUrl,omitempty"`
	Status          models.PaymentStatus `json:"status"`
	IsActive        bool                 `json:"isActive"`
	RefundOfID      *uint                `json:"refundOfId,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func toPaymentResponse(p models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		UUID:            p.UUID,
		UserID:          p.UserID,
		SessionID:       p.SessionID,
		SessionType:     p.SessionType,
		PaymentTypeID:   p.PaymentTypeID,
		PaymentTypeName: p.PaymentType.Name,
		Amount:          p.Amount,
		PaymentDate:     p.PaymentDate,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		TransactionID:   p.TransactionID,
		ReceiptURL:      p.ReceiptURL,
		Status:          p.Status,
		IsActive:        p.IsActive,
		RefundOfID:      p.RefundOfID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toPaymentResponses(payments []models.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	return out
}

// UnpaidResponse reports the outcome of DELETE /payments/sessions/:sessionId
type UnpaidResponse struct {
	SessionID   uint               `json:"sessionId"`
	SessionType models.SessionType `json:"sessionType"`
	Deactivated bool               `json:"deactivated"`
}

// PaymentTypeResponse is one entry of GET /payment-types
type PaymentTypeResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ReceiptUploadResponse is returned by POST /payments/receipts
type ReceiptUploadResponse struct {
	ReceiptURL string `json:"receiptUrl"`
}
