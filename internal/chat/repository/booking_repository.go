package repository

import (
	"context"
	"errors"

	"tourism_chat_service/internal/chat/domain"

	"gorm.io/gorm"
)

// BookingRepository definition read-only booking lookup
type BookingRepository interface {
	FindBooking(ctx context.Context, id string) (*domain.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository create BookingRepository
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) FindBooking(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
