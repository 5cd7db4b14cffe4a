package models

import "time"

// User is a registered customer account.
type User struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email         string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash  string    `gorm:"column:password_hash;not null"`
	Name          string    `gorm:"column:name;not null;default:''"`
	Phone         *string   `gorm:"column:phone"`
	TelegramID    *string   `gorm:"column:telegram_id"`
	IsAdmin       bool      `gorm:"column:is_admin;not null;default:false"`
	LoyaltyPoints int64     `gorm:"column:loyalty_points;not null;default:0"`
	ReferredByID  *int64    `gorm:"column:referred_by_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// FavoriteProduct links a user to a product they starred.
type FavoriteProduct struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:ux_favorites_pair"`
	ProductID int64     `gorm:"column:product_id;not null;uniqueIndex:ux_favorites_pair"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
