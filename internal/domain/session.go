package domain

import "time"

const (
	ChannelWeb  = "web"
	ChannelUssd = "ussd"
)

// Session is one conversation thread owned by a user id (web) or a phone
// number (ussd). UpdatedAt tracks the creation time of the newest message.
type Session struct {
	ID        string    `json:"id"`
	OwnerKey  string    `json:"owner_key"`
	Channel   string    `json:"channel"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
