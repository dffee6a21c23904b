package model

import "time"

// Base holds the fields every stored entity shares. LastModifiedAt is bumped on
// every write, soft deletes included, and is the cursor a sync layer would follow.
type Base struct {
	ID             string     `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the entity has been soft-deleted.
func (b *Base) IsDeleted() bool {
	return b.DeletedAt != nil
}
