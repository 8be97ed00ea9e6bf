package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"practice_app_echo/internal/models"
)

// UserDirectory maps authenticated identities to therapist accounts
type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := d.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *UserDirectory) findByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	var u models.User
	if err := d.db.WithContext(ctx).Where("firebase_uid = ?", uid).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindOrCreateByFirebaseUID returns the account bound to uid, provisioning a
// Member account on first sign-in. Concurrent first sign-ins converge on the
// row that won the firebase_uid unique index.
func (d *UserDirectory) FindOrCreateByFirebaseUID(ctx context.Context, uid, email, name string) (*models.User, error) {
	existing, err := d.findByFirebaseUID(ctx, uid)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	u := models.User{
		Name:        name,
		Email:       email,
		FirebaseUID: &uid,
		UserType:    models.UserTypeMember,
	}
	err = d.db.WithContext(ctx).Create(&u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		if winner, findErr := d.findByFirebaseUID(ctx, uid); findErr == nil {
			return winner, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
