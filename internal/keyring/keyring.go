// Package keyring holds the valid credential sets that gate override
// tiers. Keys are supplied exclusively through the environment at
// process start; there are no compiled-in defaults. An empty set makes
// its tier permanently unreachable.
package keyring

import (
	"crypto/subtle"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/powerstream/commandgate/internal/model"
)

// envKeys is the environment surface for tier credentials.
type envKeys struct {
	AdminKeys     []string `env:"COMMANDGATE_ADMIN_KEYS" envSeparator:","`
	SovereignKeys []string `env:"COMMANDGATE_SOVEREIGN_KEYS" envSeparator:","`
}

// Registry maps override tiers to their configured secret sets.
// Immutable after construction; safe for concurrent readers.
type Registry struct {
	keys map[model.Tier][]string
}

// FromEnv builds a Registry from COMMANDGATE_ADMIN_KEYS and
// COMMANDGATE_SOVEREIGN_KEYS (comma-separated opaque secrets).
func FromEnv() (*Registry, error) {
	var ek envKeys
	if err := env.Parse(&ek); err != nil {
		return nil, err
	}
	return New(ek.AdminKeys, ek.SovereignKeys), nil
}

// New builds a Registry from explicit key sets. Blank entries are
// dropped so a trailing comma cannot open a tier.
func New(adminKeys, sovereignKeys []string) *Registry {
	return &Registry{
		keys: map[model.Tier][]string{
			model.TierAdminOverride:     clean(adminKeys),
			model.TierSovereignOverride: clean(sovereignKeys),
		},
	}
}

// IsValidKey reports whether candidate is an exact member of the
// configured set for tier. Unknown tiers and empty sets are false.
// Each comparison is constant-time; the full set is always scanned so
// timing does not reveal which entry matched.
func (r *Registry) IsValidKey(tier model.Tier, candidate string) bool {
	set, ok := r.keys[tier]
	if !ok || candidate == "" {
		return false
	}
	match := 0
	for _, k := range set {
		if subtle.ConstantTimeCompare([]byte(k), []byte(candidate)) == 1 {
			match = 1
		}
	}
	return match == 1
}

// Reachable reports whether tier has at least one configured key.
func (r *Registry) Reachable(tier model.Tier) bool {
	return len(r.keys[tier]) > 0
}

func clean(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
