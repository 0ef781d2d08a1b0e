// Package policy classifies command text into intents and evaluates
// role-based auto-approval for the normal tier.
package policy

import (
	"regexp"
	"strings"

	"github.com/powerstream/commandgate/internal/model"
)

// Intent is a recognized command with its gating attributes.
type Intent struct {
	Name        string
	Description string

	// Keywords are matched as lowercase substrings of the command text,
	// in declaration order. Patterns are tried after keywords.
	Keywords []string
	Patterns []*regexp.Regexp

	// MinTier is the lowest override tier allowed to run this intent.
	MinTier model.Tier

	// RequiresOwnerProof marks intents gated on an enrolled signature
	// in addition to a tier credential.
	RequiresOwnerProof bool

	// LowRisk intents are auto-approved for the operator role at the
	// normal tier. Everything else at normal tier needs the admin role.
	LowRisk bool

	// Transfer marks the one intent that hands control to a successor.
	Transfer bool
}

// Catalog is the ordered set of recognized intents.
type Catalog struct {
	intents []Intent
}

// NewCatalog returns the built-in intent catalog.
func NewCatalog() *Catalog {
	return &Catalog{intents: []Intent{
		{
			Name:        "status.report",
			Description: "Report current system status",
			Keywords:    []string{"status", "ping", "heartbeat"},
			MinTier:     model.TierNormal,
			LowRisk:     true,
		},
		{
			Name:        "health.check",
			Description: "Run a health check across subsystems",
			Keywords:    []string{"health", "diagnostics"},
			MinTier:     model.TierNormal,
			LowRisk:     true,
		},
		{
			Name:        "queue.replay",
			Description: "Replay the authorized command queue",
			Keywords:    []string{"replay queue", "replay commands"},
			MinTier:     model.TierNormal,
		},
		{
			Name:        "stream.start",
			Description: "Start a broadcast stream",
			Keywords:    []string{"start stream", "go live"},
			Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)start\s+stream(\s+\S+)?`)},
			MinTier:     model.TierNormal,
		},
		{
			Name:        "stream.stop",
			Description: "Stop a broadcast stream",
			Keywords:    []string{"stop stream", "end stream", "kill stream"},
			MinTier:     model.TierNormal,
		},
		{
			Name:        "broadcast.announce",
			Description: "Broadcast a system-wide announcement",
			Keywords:    []string{"broadcast", "announce"},
			Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)^say\s+.+`)},
			MinTier:     model.TierNormal,
		},
		{
			Name:        "system.reboot",
			Description: "Reboot the platform services",
			Keywords:    []string{"reboot", "restart system"},
			MinTier:     model.TierAdminOverride,
		},
		{
			Name:        "fans.lockout",
			Description: "Lock out fan messaging across channels",
			Keywords:    []string{"fan lockout", "lockout fans", "lock out fans"},
			Patterns:    []*regexp.Regexp{regexp.MustCompile(`(?i)lock\s*out\s+(the\s+)?fans?\b`)},
			MinTier:     model.TierAdminOverride,
		},
		{
			Name:               "system.lockdown",
			Description:        "Lock the platform down to owner access only",
			Keywords:           []string{"lockdown", "lock down"},
			MinTier:            model.TierSovereignOverride,
			RequiresOwnerProof: true,
		},
		{
			Name:               "control.transfer",
			Description:        "Transfer platform control to a named successor",
			Keywords:           []string{"transfer control"},
			Patterns:           []*regexp.Regexp{regexp.MustCompile(`(?i)transfer\s+control\s+to\s+(\S+)`)},
			MinTier:            model.TierSovereignOverride,
			RequiresOwnerProof: true,
			Transfer:           true,
		},
	}}
}

// Match classifies command text against the catalog. Keywords win over
// patterns; earlier intents win over later ones. Returns false when no
// intent recognizes the text.
func (c *Catalog) Match(commandText string) (Intent, bool) {
	text := strings.ToLower(strings.TrimSpace(commandText))
	if text == "" {
		return Intent{}, false
	}
	for _, in := range c.intents {
		for _, kw := range in.Keywords {
			if strings.Contains(text, kw) {
				return in, true
			}
		}
	}
	for _, in := range c.intents {
		for _, p := range in.Patterns {
			if p.MatchString(commandText) {
				return in, true
			}
		}
	}
	return Intent{}, false
}

// TransferRecipient extracts the successor named in a transfer command,
// or "" if none is named.
func TransferRecipient(commandText string) string {
	m := regexp.MustCompile(`(?i)transfer\s+control\s+to\s+(\S+)`).FindStringSubmatch(commandText)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimRight(m[1], ".,!")
}

// Intents returns the catalog contents in declaration order.
func (c *Catalog) Intents() []Intent {
	out := make([]Intent, len(c.intents))
	copy(out, c.intents)
	return out
}
