package models

// AddItemRequest is the payload for submitting a URL to the watchlist.
// Target is the optional threshold in major units ("19.99"); it is kept as a
// string so form and JSON submissions share one validation path.
type AddItemRequest struct {
	URL    string `json:"url" form:"url" binding:"required"`
	Target string `json:"target" form:"target"`
	Rule   string `json:"rule" form:"rule"`
	Notes  string `json:"notes" form:"notes"`
}

// SetTargetRequest replaces an item's target threshold.
type SetTargetRequest struct {
	Amount string `json:"amount" form:"amount" binding:"required"`
	Rule   string `json:"rule" form:"rule"`
}

// UpdateItemRequest carries partial item updates.
type UpdateItemRequest struct {
	Notes    *string `json:"notes"`
	IsPaused *bool   `json:"is_paused"`
}
