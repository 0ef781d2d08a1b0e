package model

import "fmt"

// Tier is an ordered override privilege level. Higher tier = more privileged.
type Tier int

const (
	TierNormal Tier = iota
	TierAdminOverride
	TierSovereignOverride
	TierControlTransfer
)

// String returns the canonical name used in audit entries and wire payloads.
func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "normal"
	case TierAdminOverride:
		return "admin-override"
	case TierSovereignOverride:
		return "sovereign-override"
	case TierControlTransfer:
		return "control-transfer"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseTier maps a tier name to its Tier. Fail-closed: unknown names
// return false, never a default tier.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "normal":
		return TierNormal, true
	case "admin-override":
		return TierAdminOverride, true
	case "sovereign-override":
		return TierSovereignOverride, true
	case "control-transfer":
		return TierControlTransfer, true
	default:
		return TierNormal, false
	}
}

// RequiresKey reports whether escalating to this tier demands a
// credential from the key registry. Normal never does; ControlTransfer
// is reached by an authorized transfer request, not a key.
func (t Tier) RequiresKey() bool {
	return t == TierAdminOverride || t == TierSovereignOverride
}
