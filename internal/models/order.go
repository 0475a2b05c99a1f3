package models

import "time"

// CartItem is a single entry of a client cart. Each entry books one seat.
type CartItem struct {
	ID      string `json:"id" validate:"required,uuid"`
	Subject string `json:"subject"`
}

// OrderDetail represents a single line within an order.
type OrderDetail struct {
	ID       uint   `json:"-" gorm:"primaryKey"`
	OrderID  string `json:"-" gorm:"type:varchar(36);index;not null"`
	Position int    `json:"-" gorm:"not null"` // submission order within the cart
	LessonID string `json:"lessonId" gorm:"type:varchar(36);not null"`
	Subject  string `json:"subject"`
	Quantity int    `json:"quantity" gorm:"not null"`
}

// Order is the immutable record of a completed checkout.
type Order struct {
	ID          string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string        `json:"name" gorm:"type:varchar(100);not null"`
	Phone       string        `json:"phone" gorm:"type:varchar(30);not null"`
	OrderedAt   time.Time     `json:"orderedAt" gorm:"index;not null"`
	Details     []OrderDetail `json:"orderDetails" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalSpaces int           `json:"totalSpaces" gorm:"not null"`
}
