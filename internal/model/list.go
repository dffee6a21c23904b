package model

type ShoppingList struct {
	Base
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreatedBy   string  `json:"created_by"`
	CommunityID *string `json:"community_id,omitempty"`
	IsShared    bool    `json:"is_shared"`
	IsLocked    bool    `json:"is_locked"`
}

// ListOwner records that a user may manage a list. The creator always has one.
type ListOwner struct {
	Base
	ListID string `json:"list_id"`
	UserID string `json:"user_id"`
}

type CreateListParams struct {
	Name        string `validate:"required,max=100"`
	Description string
	CommunityID *string
	IsShared    bool
}

// UpdateListParams carries a partial update; nil fields are left unchanged.
type UpdateListParams struct {
	ID          string
	Name        *string
	Description *string
	IsShared    *bool
	CommunityID *string
}
