package views

import (
	"practice_app_echo/internal/models"
)

// ReceiptProps feeds the public receipt page
type ReceiptProps struct {
	Title       string
	Payment     models.Payment
	PaymentType string
}

type receiptRow struct {
	Label string
	Value string
}

func statusLabel(p models.Payment) string {
	switch {
	case p.IsRefund():
		return "Refund"
	case p.Status == models.PaymentStatusRefunded:
		return "Paid (refunded)"
	case p.Status == models.PaymentStatusCompleted:
		return "Paid"
	case p.Status == models.PaymentStatusPending:
		return "Pending"
	default:
		return "Voided"
	}
}

// receiptRows lists the populated fields of the receipt table
func receiptRows(props ReceiptProps) []receiptRow {
	p := props.Payment
	all := []receiptRow{
		{"Receipt", p.UUID},
		{"Status", statusLabel(p)},
		{"Amount", p.Amount.StringFixed(2)},
		{"Date", p.PaymentDate.Format("2 Jan 2006 15:04 MST")},
		{"Method", props.PaymentType},
		{"Reference", p.ReferenceNumber},
		{"Transaction", p.TransactionID},
		{"Notes", p.Notes},
	}
	rows := all[:0]
	for _, r := range all {
		if r.Value != "" {
			rows = append(rows, r)
		}
	}
	return rows
}
