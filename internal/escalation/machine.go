// Package escalation owns the process-wide override tier.
//
// The tier is a single value held by one Machine. Every mutation goes
// through a guarded method; nothing else in the process may set the tier
// directly. The tier is never persisted: a restart always comes back at
// Normal, forcing re-authorization. An in-flight control transfer that
// was not acknowledged before a restart is therefore dropped, not
// resumed.
package escalation

import (
	"fmt"
	"sync"

	"github.com/powerstream/commandgate/internal/model"
)

// Machine tracks the current override tier and enforces which
// transitions are legal. Safe for concurrent use.
type Machine struct {
	mu        sync.Mutex
	tier      model.Tier
	recipient string
}

// New returns a machine at the Normal tier.
func New() *Machine {
	return &Machine{tier: model.TierNormal}
}

// Current returns the tier the machine currently holds.
func (m *Machine) Current() model.Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tier
}

// Recipient returns the named recipient of a completed control transfer,
// or "" if the machine has never entered ControlTransfer.
func (m *Machine) Recipient() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recipient
}

// Escalate raises the tier to target. Escalation is monotonic upward:
// the target must be AdminOverride or SovereignOverride and strictly
// above the current tier. ControlTransfer is never reachable through
// Escalate; it requires Transfer with an explicit authorization flag.
// A refused escalation leaves the tier unchanged.
//
// Credential validation happens before this call, at the authorization
// gate. The machine only rules on whether the move itself is legal.
func (m *Machine) Escalate(target model.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if target != model.TierAdminOverride && target != model.TierSovereignOverride {
		return &model.DeniedError{Reason: model.ReasonIllegalTransition}
	}
	if target <= m.tier {
		return &model.DeniedError{Reason: model.ReasonIllegalTransition}
	}
	m.tier = target
	return nil
}

// Transfer moves SovereignOverride → ControlTransfer. It requires the
// explicit authorized flag and a named recipient; anything short of that
// is refused and the tier stays at its current value.
func (m *Machine) Transfer(authorized bool, recipient string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tier != model.TierSovereignOverride {
		return &model.DeniedError{Reason: model.ReasonIllegalTransition}
	}
	if !authorized {
		return &model.DeniedError{Reason: model.ReasonIllegalTransition}
	}
	if recipient == "" {
		return &model.DeniedError{Reason: model.ReasonIllegalTransition}
	}
	m.tier = model.TierControlTransfer
	m.recipient = recipient
	return nil
}

// Reset forces the tier back to Normal from any state. The recipient of
// a past transfer is cleared with it.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tier = model.TierNormal
	m.recipient = ""
}

// Describe returns a one-line human-readable summary of the machine
// state, used by status surfaces.
func (m *Machine) Describe() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tier == model.TierControlTransfer {
		return fmt.Sprintf("tier=%s recipient=%s", m.tier, m.recipient)
	}
	return fmt.Sprintf("tier=%s", m.tier)
}
