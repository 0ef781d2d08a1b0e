package auditlog

// Category segments the audit trail. Each category is an independent
// hash-chained log file.
type Category string

const (
	CategoryOverride       Category = "override"
	CategoryError          Category = "error"
	CategoryCommandHistory Category = "command-history"
	CategoryAuditTrail     Category = "audit-trail"
	CategoryStreamActivity Category = "stream-activity"
)

// Categories returns every defined category for iteration and validation.
func Categories() []Category {
	return []Category{
		CategoryOverride,
		CategoryError,
		CategoryCommandHistory,
		CategoryAuditTrail,
		CategoryStreamActivity,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryOverride, CategoryError, CategoryCommandHistory,
		CategoryAuditTrail, CategoryStreamActivity:
		return true
	}
	return false
}

// Entry is one line in a hash-chained JSONL audit log. All fields are
// scalars (no map[string]any) to guarantee deterministic json.Marshal
// field order for reproducible hashing.
type Entry struct {
	Timestamp string   `json:"ts"`
	RequestID string   `json:"request_id,omitempty"`
	ActorID   string   `json:"actor_id"`
	Category  Category `json:"category"`
	Outcome   string   `json:"outcome"` // allowed | denied | error
	Detail    string   `json:"detail"`
	PrevHash  string   `json:"prev_hash"`
}
