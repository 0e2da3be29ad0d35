package models

// Division groups users, it is only used for admin-side filtering.
type Division struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
