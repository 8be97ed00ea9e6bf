package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"practice_app_echo/internal/services"
	"practice_app_echo/internal/views"
)

type PublicHandler struct {
	ledger *services.PaymentLedger
	log    *zap.Logger
}

func NewPublicHandler(ledger *services.PaymentLedger, log *zap.Logger) *PublicHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{ledger: ledger, log: log}
}

// ShowReceipt renders the public receipt page of a payment
func (h *PublicHandler) ShowReceipt(c echo.Context) error {
	uuid := c.Param("uuid")
	if uuid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid receipt UUID")
	}

	payment, err := h.ledger.FindByUUID(c.Request().Context(), uuid)
	if err != nil {
		h.log.Info("receipt lookup failed", zap.String("uuid", uuid), zap.Error(err))
		return echo.NewHTTPError(http.StatusNotFound, "Receipt not found")
	}

	props := views.ReceiptProps{
		Title:       "Payment Receipt",
		Payment:     *payment,
		PaymentType: payment.PaymentType.Name,
	}
	if payment.IsRefund() {
		props.Title = "Refund Receipt"
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return views.PaymentReceipt(props).Render(c.Request().Context(), c.Response())
}
