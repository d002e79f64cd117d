package jwt

import (
	"sync"
	"time"
)

const (
	RoleAdmin Role = iota
)

const DefaultTokenTTL = 12 * time.Hour

var (
	mu          sync.RWMutex
	roleSecrets = map[Role]string{}
	tokenTTL    = DefaultTokenTTL
)

// Configure sets the admin signing secret and the access token lifetime.
// A zero ttl keeps the default.
func Configure(adminSecret string, ttl time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	roleSecrets[RoleAdmin] = adminSecret
	if ttl > 0 {
		tokenTTL = ttl
	} else {
		tokenTTL = DefaultTokenTTL
	}
}

func secretFor(role Role) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	secret, ok := roleSecrets[role]
	return secret, ok && secret != ""
}

func currentTTL() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return tokenTTL
}
