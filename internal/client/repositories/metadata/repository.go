// Package metadata stores small key/value facts about the CLI session, such
// as the signed-in username and its access token.
package metadata

import "context"

// Well-known keys.
const (
	KeyUserName    = "username"
	KeyAccessToken = "access_token"
	KeyServer      = "server"
)

type Repository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
