// Package metadata stores small client settings as key/value pairs, such as
// the last public key the media proxy was seen with.
package metadata

import "context"

// KeyProxyPublicKey holds the pinned media proxy public key.
const KeyProxyPublicKey = "proxy_public_key"

type Repository interface {
	// Get reports ok=false when key is not set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
