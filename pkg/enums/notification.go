package enums

import "fmt"

// NotificationType identifies the kind of message queued for delivery.
type NotificationType string

const (
	NotificationTypeOrder  NotificationType = "order_notification"
	NotificationTypeReview NotificationType = "review"
	NotificationTypeRecipe NotificationType = "recipe"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrder,
	NotificationTypeReview,
	NotificationTypeRecipe,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationStatus tracks a queued notification through delivery.
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusFailed    NotificationStatus = "failed"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusPending,
	NotificationStatusDelivered,
	NotificationStatusFailed,
}

// String implements fmt.Stringer.
func (n NotificationStatus) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationStatus.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}
