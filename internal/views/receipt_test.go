package views

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"practice_app_echo/internal/models"
)

func renderReceipt(t *testing.T, props ReceiptProps) string {
	t.Helper()
	var buf bytes.Buffer
	if err := PaymentReceipt(props).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestPaymentReceipt(t *testing.T) {
	refundOf := uint(7)
	paidAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		props   ReceiptProps
		want    []string
		notWant []string
	}{
		{
			name: "completed payment",
			props: ReceiptProps{
				Title:       "Payment Receipt",
				PaymentType: "Cash",
				Payment: models.Payment{
					UUID:        "3f1c",
					Amount:      decimal.RequireFromString("120"),
					PaymentDate: paidAt,
					Status:      models.PaymentStatusCompleted,
					Notes:       "<b>session 1</b>",
					ReceiptURL:  "https://cdn.test/receipts/1.pdf",
				},
			},
			want: []string{
				"<title>Payment Receipt</title>",
				"<th>Amount</th><td>120.00</td>",
				"<th>Status</th><td>Paid</td>",
				"<th>Date</th><td>10 Mar 2026 09:00 UTC</td>",
				"&lt;b&gt;session 1&lt;/b&gt;",
				`href="https://cdn.test/receipts/1.pdf"`,
			},
			notWant: []string{"<th>Reference</th>", "<b>session"},
		},
		{
			name: "refund row",
			props: ReceiptProps{
				Title:   "Refund Receipt",
				Payment: models.Payment{Amount: decimal.RequireFromString("-40"), Status: models.PaymentStatusRefunded, RefundOfID: &refundOf},
			},
			want:    []string{"<td>Refund</td>", "<td>-40.00</td>"},
			notWant: []string{"View attached receipt", "<th>Method</th>"},
		},
		{
			name: "unsafe receipt link",
			props: ReceiptProps{
				Title:   "Payment Receipt",
				Payment: models.Payment{Status: models.PaymentStatusCompleted, ReceiptURL: "javascript:alert(1)"},
			},
			want:    []string{"about:invalid#TemplFailedSanitizationURL"},
			notWant: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := renderReceipt(t, tt.props)
			for _, w := range tt.want {
				if !strings.Contains(html, w) {
					t.Errorf("output missing %q\n%s", w, html)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(html, w) {
					t.Errorf("output unexpectedly contains %q", w)
				}
			}
		})
	}
}
