package enums

import "fmt"

// CollectionStatus tracks the lifecycle of a sales collection.
type CollectionStatus string

const (
	CollectionStatusDraft  CollectionStatus = "draft"
	CollectionStatusActive CollectionStatus = "active"
	CollectionStatusClosed CollectionStatus = "closed"
)

var validCollectionStatuses = []CollectionStatus{
	CollectionStatusDraft,
	CollectionStatusActive,
	CollectionStatusClosed,
}

// String implements fmt.Stringer.
func (c CollectionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CollectionStatus.
func (c CollectionStatus) IsValid() bool {
	for _, candidate := range validCollectionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCollectionStatus converts raw input into a CollectionStatus.
func ParseCollectionStatus(value string) (CollectionStatus, error) {
	for _, candidate := range validCollectionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collection status %q", value)
}
