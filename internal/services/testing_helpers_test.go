package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"practice_app_echo/internal/models"
)

var testClock = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// newTestDB opens a private in-memory SQLite database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

// newTestService returns a lifecycle manager with a fixed clock
func newTestService(t *testing.T, cache Cache) (*PaymentService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewPaymentService(db, cache, nil)
	svc.now = func() time.Time { return testClock }
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: strings.ToLower(name) + "@example.com", UserType: models.UserTypeMember}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return u
}

func seedPaymentType(t *testing.T, db *gorm.DB, name string, active bool) models.PaymentType {
	t.Helper()
	pt := models.PaymentType{Name: name, IsActive: true}
	if err := db.Create(&pt).Error; err != nil {
		t.Fatalf("Failed to seed payment type: %v", err)
	}
	if !active {
		if err := db.Model(&pt).Update("is_active", false).Error; err != nil {
			t.Fatalf("Failed to deactivate payment type: %v", err)
		}
		pt.IsActive = false
	}
	return pt
}

func seedMeeting(t *testing.T, db *gorm.DB, owner models.User, price string) models.Meeting {
	t.Helper()
	m := models.Meeting{
		UserID:      owner.ID,
		ClientID:    1,
		MeetingDate: testClock,
		Duration:    50,
		Price:       decimal.RequireFromString(price),
		IsActive:    true,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("Failed to seed meeting: %v", err)
	}
	return m
}

func seedExpense(t *testing.T, db *gorm.DB, owner models.User, amount string) models.Expense {
	t.Helper()
	e := models.Expense{UserID: owner.ID, Name: "Office rent", Amount: decimal.RequireFromString(amount), ExpenseDate: testClock, IsActive: true}
	if err := db.Create(&e).Error; err != nil {
		t.Fatalf("Failed to seed expense: %v", err)
	}
	return e
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func loadMeeting(t *testing.T, db *gorm.DB, id uint) models.Meeting {
	t.Helper()
	var m models.Meeting
	if err := db.First(&m, id).Error; err != nil {
		t.Fatalf("Failed to load meeting %d: %v", id, err)
	}
	return m
}

func assertAmount(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s; want %s", label, got.String(), want)
	}
}

// memoryCache is an in-process Cache used in place of Redis
type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
	gets   int
	hits   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	data, ok := m.values[key]
	if !ok {
		return ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	return nil
}

func (m *memoryCache) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = data
	return true, nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryCache) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if data, ok := m.values[key]; ok {
		_ = json.Unmarshal(data, &n)
	}
	n++
	m.values[key], _ = json.Marshal(n)
	return n, nil
}
