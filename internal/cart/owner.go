package cart

import (
	"fmt"

	"gorm.io/gorm"
)

// Owner identifies whose cart lines we are touching: a registered user or a
// guest session, never both.
type Owner struct {
	UserID    *int64
	SessionID *string
}

// UserOwner builds an owner for a registered user.
func UserOwner(userID int64) Owner {
	return Owner{UserID: &userID}
}

// GuestOwner builds an owner for a guest session.
func GuestOwner(sessionID string) Owner {
	return Owner{SessionID: &sessionID}
}

// Valid reports whether exactly one identity is set.
func (o Owner) Valid() bool {
	return (o.UserID != nil) != (o.SessionID != nil)
}

// IsGuest reports whether the owner is a guest session.
func (o Owner) IsGuest() bool {
	return o.SessionID != nil
}

// String renders the owner for log fields.
func (o Owner) String() string {
	if o.UserID != nil {
		return fmt.Sprintf("user:%d", *o.UserID)
	}
	if o.SessionID != nil {
		return "session:" + *o.SessionID
	}
	return "none"
}

func (o Owner) scope(q *gorm.DB) *gorm.DB {
	if o.UserID != nil {
		return q.Where("user_id = ?", *o.UserID)
	}
	return q.Where("session_id = ?", *o.SessionID)
}
