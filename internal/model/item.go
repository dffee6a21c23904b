package model

import "time"

type ListItem struct {
	Base
	ListID      string     `json:"list_id"`
	Name        string     `json:"name"`
	Quantity    int        `json:"quantity"`
	Unit        string     `json:"unit"`
	IsPurchased bool       `json:"is_purchased"`
	PurchasedBy *string    `json:"purchased_by,omitempty"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
	SortOrder   int        `json:"sort_order"`
}

type AddItemParams struct {
	ListID   string
	Name     string `validate:"required,max=100"`
	Quantity int    `validate:"min=1"`
	Unit     string `validate:"required,max=20"`
}

// UpdateItemParams carries a partial update; nil fields are left unchanged.
type UpdateItemParams struct {
	ID          string
	Name        *string
	Quantity    *int
	Unit        *string
	IsPurchased *bool
}

// OnlyPurchaseChange reports whether the update touches nothing but the
// purchase flag. Such updates are allowed on locked lists.
func (p UpdateItemParams) OnlyPurchaseChange() bool {
	return p.IsPurchased != nil && p.Name == nil && p.Quantity == nil && p.Unit == nil
}
