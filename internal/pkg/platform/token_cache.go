package platform

import (
	"sync"
	"time"
)

// tokenSkew is subtracted from the provider expiry so a token is refreshed
// before it actually dies mid-request.
const tokenSkew = 60 * time.Second

// TokenCache holds a bearer token until shortly before its expiry. Racing
// refreshes are tolerated: both callers fetch, last write wins.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{now: time.Now}
}

// Get returns the cached token and whether it is still usable.
func (tc *TokenCache) Get() (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.token == "" || !tc.now().Before(tc.expiresAt) {
		return "", false
	}
	return tc.token, true
}

// Set stores a fresh token. expiresIn is the provider's lifetime in seconds.
func (tc *TokenCache) Set(token string, expiresIn int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.token = token
	tc.expiresAt = tc.now().Add(time.Duration(expiresIn)*time.Second - tokenSkew)
}

// Clear drops the cached token, forcing the next Get to miss.
func (tc *TokenCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.token = ""
	tc.expiresAt = time.Time{}
}
