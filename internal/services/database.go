package services

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"practice_app_echo/internal/models"
)

// InitDB initializes the database connection with connection pooling
func InitDB(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.PaymentType{},
		&models.Meeting{},
		&models.PersonalMeeting{},
		&models.Expense{},
		&models.Payment{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	)
}

// SeedPaymentTypes inserts the default payment methods that do not exist yet
func SeedPaymentTypes(db *gorm.DB, log *zap.Logger) error {
	for _, name := range models.DefaultPaymentTypes {
		var existing models.PaymentType
		err := db.Where("name = ?", name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&models.PaymentType{Name: name, IsActive: true}).Error; err != nil {
			return err
		}
		log.Info("seeded payment type", zap.String("name", name))
	}
	return nil
}
