package handlers

import (
	"context"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"practice_app_echo/internal/middleware"
	"practice_app_echo/internal/models"
	"practice_app_echo/internal/services"
)

const maxReceiptSize = 10 << 20

var allowedReceiptExt = map[string]bool{".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// ReceiptUploader stores a receipt file and returns its URL
type ReceiptUploader interface {
	Upload(ctx context.Context, userID uint, filename string, body io.Reader) (string, error)
}

type PaymentHandler struct {
	payments *services.PaymentService
	receipts ReceiptUploader
	log      *zap.Logger
}

// NewPaymentHandler builds the JSON payment API. receipts may be nil.
func NewPaymentHandler(payments *services.PaymentService, receipts ReceiptUploader, log *zap.Logger) *PaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{payments: payments, receipts: receipts, log: log}
}

// RegisterRoutes mounts the payment API on an authenticated group
func (h *PaymentHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/payment-types", h.ListPaymentTypes)

	p := api.Group("/payments")
	p.POST("/meetings/:meetingId", h.markPaid(models.SessionTypeMeeting, "meetingId"))
	p.POST("/personal-meetings/:personalMeetingId", h.markPaid(models.SessionTypePersonalMeeting, "personalMeetingId"))
	p.POST("/expenses/:expenseId", h.markPaid(models.SessionTypeExpense, "expenseId"))

	p.GET("/sessions/:sessionId", h.GetSessionPayments)
	p.GET("/sessions/:sessionId/history", h.GetSessionHistory)
	p.GET("/sessions/:sessionId/consistency", h.CheckSessionConsistency)
	p.DELETE("/sessions/:sessionId", h.MarkSessionUnpaid)

	p.GET("/date-range", h.GetPaymentsByDateRange)
	p.GET("/summary", h.GetSummary)
	p.POST("/receipts", h.UploadReceipt)

	p.PUT("/:paymentId/status", h.UpdateStatus, middleware.RequireAdmin)
	p.POST("/:paymentId/refund", h.RefundPayment)
}

func (h *PaymentHandler) markPaid(sessionType models.SessionType, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseIDParam(c, param)
		if err != nil {
			return err
		}
		ref := models.SessionRef{Type: sessionType, ID: id}
		if err := h.authorizeSession(c, ref); err != nil {
			return err
		}

		var req MarkPaidRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		if req.PaymentTypeID == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "paymentTypeId is required")
		}

		payment, err := h.payments.MarkSessionPaid(c.Request().Context(), ref, services.MarkPaidInput{
			PaymentTypeID:   req.PaymentTypeID,
			Amount:          req.Amount,
			ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
			Notes:           req.Notes,
			TransactionID:   strings.TrimSpace(req.TransactionID),
			ReceiptURL:      strings.TrimSpace(req.ReceiptURL),
			IdempotencyKey:  c.Request().Header.Get("Idempotency-Key"),
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, toPaymentResponse(*payment))
	}
}

// GetSessionPayments lists the active payments of a session
func (h *PaymentHandler) GetSessionPayments(c echo.Context) error {
	ref, err := h.sessionFromRequest(c)
	if err != nil {
		return err
	}
	payments, err := h.payments.GetPaymentsForSession(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// GetSessionHistory lists every payment of a session, deactivated ones included
func (h *PaymentHandler) GetSessionHistory(c echo.Context) error {
	ref, err := h.sessionFromRequest(c)
	if err != nil {
		return err
	}
	payments, err := h.payments.GetAllPaymentsForSession(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// CheckSessionConsistency reports whether the session flag agrees with its ledger
func (h *PaymentHandler) CheckSessionConsistency(c echo.Context) error {
	ref, err := h.sessionFromRequest(c)
	if err != nil {
		return err
	}
	report, err := h.payments.CheckSessionConsistency(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// MarkSessionUnpaid deactivates every payment of a session
func (h *PaymentHandler) MarkSessionUnpaid(c echo.Context) error {
	ref, err := h.sessionFromRequest(c)
	if err != nil {
		return err
	}
	changed, err := h.payments.MarkSessionUnpaid(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UnpaidResponse{SessionID: ref.ID, SessionType: ref.Type, Deactivated: changed})
}

// GetPaymentsByDateRange lists the caller's payments dated within the range.
// Administrators may pass userId to look at another account.
func (h *PaymentHandler) GetPaymentsByDateRange(c echo.Context) error {
	userID, err := h.targetUser(c)
	if err != nil {
		return err
	}
	start, end, err := parseDateRange(c)
	if err != nil {
		return err
	}
	includeInactive := c.QueryParam("includeInactive") == "true"

	payments, err := h.payments.GetPaymentsByUserAndDateRange(c.Request().Context(), userID, start, end, includeInactive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// GetSummary returns totals of the caller's active payments within the range
func (h *PaymentHandler) GetSummary(c echo.Context) error {
	userID, err := h.targetUser(c)
	if err != nil {
		return err
	}
	start, end, err := parseDateRange(c)
	if err != nil {
		return err
	}
	summary, err := h.payments.GetPaymentSummary(c.Request().Context(), userID, start, end)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// UpdateStatus is the administrative status correction
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	id, err := parseIDParam(c, "paymentId")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	status, ok := models.ParsePaymentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid status: "+req.Status)
	}

	payment, err := h.payments.UpdatePaymentStatus(c.Request().Context(), id, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentResponse(*payment))
}

// RefundPayment refunds part or all of a payment and returns the refund row
func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	id, err := parseIDParam(c, "paymentId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	original, err := h.payments.Ledger().FindByID(ctx, id, false)
	if err != nil {
		return err
	}
	if err := h.authorizeOwner(c, original.UserID); err != nil {
		return err
	}

	var req RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	refund, err := h.payments.RefundPayment(ctx, id, services.RefundInput{
		RefundAmount:   req.RefundAmount,
		Notes:          req.Notes,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPaymentResponse(*refund))
}

// ListPaymentTypes returns the payment methods that can be used for new payments
func (h *PaymentHandler) ListPaymentTypes(c echo.Context) error {
	types, err := h.payments.PaymentTypes().ListActive(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]PaymentTypeResponse, 0, len(types))
	for _, t := range types {
		out = append(out, PaymentTypeResponse{ID: t.ID, Name: t.Name})
	}
	return c.JSON(http.StatusOK, out)
}

// UploadReceipt stores a receipt file; the returned URL goes into receiptUrl
func (h *PaymentHandler) UploadReceipt(c echo.Context) error {
	if h.receipts == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Receipt storage is not configured")
	}
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if file.Size > maxReceiptSize {
		return echo.NewHTTPError(http.StatusBadRequest, "Receipt exceeds 10MB")
	}
	if !allowedReceiptExt[strings.ToLower(path.Ext(file.Filename))] {
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported receipt type")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read upload")
	}
	defer src.Close()

	url, err := h.receipts.Upload(c.Request().Context(), userID, file.Filename, src)
	if err != nil {
		h.log.Error("receipt upload failed", zap.Uint("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to store receipt")
	}
	return c.JSON(http.StatusCreated, ReceiptUploadResponse{ReceiptURL: url})
}

// sessionFromRequest reads :sessionId and ?sessionType and checks ownership
func (h *PaymentHandler) sessionFromRequest(c echo.Context) (models.SessionRef, error) {
	id, err := parseIDParam(c, "sessionId")
	if err != nil {
		return models.SessionRef{}, err
	}
	st, err := models.ParseSessionType(c.QueryParam("sessionType"))
	if err != nil {
		return models.SessionRef{}, echo.NewHTTPError(http.StatusBadRequest, "sessionType must be MEETING, PERSONAL_MEETING or EXPENSE")
	}
	ref := models.SessionRef{Type: st, ID: id}
	return ref, h.authorizeSession(c, ref)
}

func (h *PaymentHandler) authorizeSession(c echo.Context, ref models.SessionRef) error {
	if isAdmin(c) {
		return nil
	}
	session, err := h.payments.FindSession(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return h.authorizeOwner(c, session.OwnerUserID)
}

func (h *PaymentHandler) authorizeOwner(c echo.Context, ownerID uint) error {
	if isAdmin(c) {
		return nil
	}
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if userID != ownerID {
		return echo.NewHTTPError(http.StatusForbidden, "Not allowed to access this session")
	}
	return nil
}

func (h *PaymentHandler) targetUser(c echo.Context) (uint, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return 0, err
	}
	if raw := c.QueryParam("userId"); raw != "" && isAdmin(c) {
		val, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || val == 0 {
			return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid userId")
		}
		return uint(val), nil
	}
	return userID, nil
}
