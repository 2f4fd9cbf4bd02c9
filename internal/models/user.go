package models

// User is a Discord user as returned by the REST API.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"global_name,omitempty"`
	Bot         bool   `json:"bot,omitempty"`
}
