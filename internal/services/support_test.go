package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"practice_app_echo/internal/config"
	"practice_app_echo/internal/models"
)

func TestSeedPaymentTypesIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 2; i++ {
		if err := SeedPaymentTypes(db, zap.NewNop()); err != nil {
			t.Fatalf("SeedPaymentTypes() run %d error = %v", i+1, err)
		}
	}

	active, err := NewPaymentTypeRegistry(db).ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != len(models.DefaultPaymentTypes) {
		t.Errorf("active payment types = %d; want %d", len(active), len(models.DefaultPaymentTypes))
	}
}

func TestReceiptObjectKey(t *testing.T) {
	pattern := regexp.MustCompile(`^receipts/42/[0-9a-f-]{36}\.pdf$`)
	a := ReceiptObjectKey(42, "Transfer.PDF")
	b := ReceiptObjectKey(42, "Transfer.PDF")
	if !pattern.MatchString(a) {
		t.Errorf("key %q does not match %s", a, pattern)
	}
	if a == b {
		t.Error("keys for the same filename collide")
	}
}

func TestNewReceiptStorage(t *testing.T) {
	base := config.ReceiptConfig{
		Bucket:          "receipts",
		Region:          "auto",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}

	tests := []struct {
		name       string
		mutate     func(*config.ReceiptConfig)
		wantErr    bool
		key        string
		wantObject string
	}{
		{"missing bucket", func(c *config.ReceiptConfig) { c.Bucket = ""; c.PublicBaseURL = "https://cdn.test" }, true, "", ""},
		{"missing public base url", func(c *config.ReceiptConfig) {}, true, "", ""},
		{"public base url", func(c *config.ReceiptConfig) { c.PublicBaseURL = "https://cdn.test/" }, false, "receipts/1/a.pdf", "https://cdn.test/receipts/1/a.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			storage, err := NewReceiptStorage(context.Background(), cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewReceiptStorage() error = %v; wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := storage.ObjectURL(tt.key); got != tt.wantObject {
				t.Errorf("ObjectURL() = %q; want %q", got, tt.wantObject)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	refundOf := uint(1)
	payments := []models.Payment{
		{Amount: decimal.RequireFromString("100"), Status: models.PaymentStatusRefunded, IsActive: true},
		{Amount: decimal.RequireFromString("-40"), Status: models.PaymentStatusRefunded, IsActive: true, RefundOfID: &refundOf},
		{Amount: decimal.RequireFromString("55.50"), Status: models.PaymentStatusCompleted, IsActive: true},
		{Amount: decimal.RequireFromString("999"), Status: models.PaymentStatusInactive, IsActive: false},
	}

	got := Summarize(payments)
	assertAmount(t, "totalPayments", got.TotalPayments, "155.5")
	assertAmount(t, "totalRefunds", got.TotalRefunds, "40")
	assertAmount(t, "netAmount", got.NetAmount, "115.5")
	if got.PaymentCount != 2 || got.RefundCount != 1 {
		t.Errorf("counts = %d/%d; want 2/1", got.PaymentCount, got.RefundCount)
	}

	empty := Summarize(nil)
	if !empty.NetAmount.IsZero() || empty.PaymentCount != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestNormalizeIdempotencyKey(t *testing.T) {
	got, err := NormalizeIdempotencyKey("  abc  ")
	if err != nil || got != "abc" {
		t.Errorf("NormalizeIdempotencyKey() = %q, %v", got, err)
	}
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'k'
	}
	if _, err := NormalizeIdempotencyKey(string(long)); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("oversized key error = %v; want ErrValidationFailed", err)
	}
}
