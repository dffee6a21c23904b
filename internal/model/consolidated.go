package model

// ItemSource traces one contribution to a consolidated item back to its list.
type ItemSource struct {
	ListID      string `json:"list_id"`
	ItemID      string `json:"item_id"`
	Quantity    int    `json:"quantity"`
	IsPurchased bool   `json:"is_purchased"`
}

// ConsolidatedItem merges every active session item sharing a normalized
// name and unit. Name and Unit are taken from the first item seen.
type ConsolidatedItem struct {
	Key             string       `json:"key"`
	Name            string       `json:"name"`
	Unit            string       `json:"unit"`
	Quantity        int          `json:"quantity"`
	IsPurchased     bool         `json:"is_purchased"`
	AppearanceOrder int          `json:"appearance_order"`
	Sources         []ItemSource `json:"sources"`
}

// SourceListItems groups purchased items under the list they came from.
type SourceListItems struct {
	List  ShoppingList `json:"list"`
	Items []ListItem   `json:"items"`
}
