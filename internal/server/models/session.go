package models

import "time"

// Session binds a browser session to an account. Token holds the SHA-256
// digest of the cookie value, never the value itself.
type Session struct {
	Token     string
	AccountID string
	Expires   time.Time
	CreatedAt time.Time
}
