package model

import "time"

// Role classifies the requesting actor for Normal-tier auto-approval.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleGuest    Role = "guest"
)

// ParseRole maps a role name to its Role. Fail-closed: unknown → guest.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleOperator, RoleGuest:
		return Role(s)
	default:
		return RoleGuest
	}
}

// Outcome is the terminal result of an authorization attempt.
type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// Request is one privileged-command submission. Immutable once built;
// only its outcome is persisted.
type Request struct {
	RequestID       string
	ActorID         string
	Role            Role
	CommandText     string
	Credential      string
	SignatureSample []byte
	RequestedTier   Tier

	// Transfer fields, meaningful only when RequestedTier is ControlTransfer.
	TransferAuthorized bool
	TransferRecipient  string
}

// Verdict is the gate's terminal decision for a Request.
type Verdict struct {
	RequestID string        `json:"request_id"`
	Allowed   bool          `json:"allowed"`
	Reason    string        `json:"reason"`
	Tier      Tier          `json:"-"`
	TierName  string        `json:"tier"`
	Intent    string        `json:"intent,omitempty"`
	Duration  time.Duration `json:"-"`

	// Result carries the dispatcher outcome when Allowed. A failed
	// dispatch does not flip Allowed back to false.
	Result *DispatchResult `json:"result,omitempty"`
}

// DispatchResult is what the execution dispatcher returned for an
// already-authorized intent.
type DispatchResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// QueuedCommand is a durably recorded command that passed authorization.
type QueuedCommand struct {
	ID          int64     `json:"id"`
	ActorID     string    `json:"actor_id"`
	CommandText string    `json:"command_text"`
	SubmittedAt time.Time `json:"submitted_at"`
}
