package domain

import "time"

// User subset of the platform user record the chat core reads and writes
type User struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Avatar   string          `json:"avatar"`
	Role     ParticipantRole `json:"role"`
	IsOnline bool            `json:"isOnline"`
	LastSeen time.Time       `json:"lastSeen"`
}

// Presence online state snapshot cached for fast reads
type Presence struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// Booking subset of the booking record needed to open a conversation
type Booking struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id"`
	ExperienceTitle string    `gorm:"column:experience_title" json:"experienceTitle"`
	BookingDate     time.Time `gorm:"column:booking_date" json:"bookingDate"`
	Status          string    `gorm:"column:status" json:"status"`
}

// TableName gorm table
func (Booking) TableName() string {
	return "bookings"
}
