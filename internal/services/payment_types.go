package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"practice_app_echo/internal/models"
)

// PaymentTypeRegistry is read-only access to the payment method reference data
type PaymentTypeRegistry struct {
	db *gorm.DB
}

func NewPaymentTypeRegistry(db *gorm.DB) *PaymentTypeRegistry {
	return &PaymentTypeRegistry{db: db}
}

func (r *PaymentTypeRegistry) WithTx(tx *gorm.DB) *PaymentTypeRegistry {
	return &PaymentTypeRegistry{db: tx}
}

func (r *PaymentTypeRegistry) FindByID(ctx context.Context, id uint) (*models.PaymentType, error) {
	var pt models.PaymentType
	err := r.db.WithContext(ctx).First(&pt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("payment type %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

func (r *PaymentTypeRegistry) ExistsActiveByID(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentType{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

func (r *PaymentTypeRegistry) ListActive(ctx context.Context) ([]models.PaymentType, error) {
	var types []models.PaymentType
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&types).Error
	return types, err
}
