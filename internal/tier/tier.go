// Package tier implements subscription-tier access control for MCP tools.
//
// Tiers form a total order (free < premium < enterprise) and higher tiers
// are strict supersets of lower ones: a tool granted to free is never
// withheld from premium or enterprise callers.
package tier

// Tier is a subscription level. The zero value is Unknown, which ranks
// below free so that unrecognized tier strings never grant access.
type Tier int

const (
	Unknown Tier = iota
	Free
	Premium
	Enterprise
)

// Parse maps a tier string from an authentication token to a Tier.
// Anything outside the known set is Unknown.
func Parse(s string) Tier {
	switch s {
	case "free":
		return Free
	case "premium":
		return Premium
	case "enterprise":
		return Enterprise
	default:
		return Unknown
	}
}

// String returns the wire representation of the tier.
func (t Tier) String() string {
	switch t {
	case Free:
		return "free"
	case Premium:
		return "premium"
	case Enterprise:
		return "enterprise"
	default:
		return "unknown"
	}
}

// Meets reports whether a caller at tier t may use a tool requiring the
// given tier.
func (t Tier) Meets(required Tier) bool {
	return t >= required
}

// Decision is the outcome of an access check. When Allowed is false the
// remaining fields describe the denial for the TIER_REQUIRED error payload.
type Decision struct {
	Allowed      bool
	Tool         string
	RequiredTier Tier
	CurrentTier  Tier
}

// CheckAccess decides whether a caller tier may invoke the named tool
// given the tool's required tier. Pure; safe to call from any goroutine.
func CheckAccess(tool string, required, current Tier) Decision {
	return Decision{
		Allowed:      current.Meets(required),
		Tool:         tool,
		RequiredTier: required,
		CurrentTier:  current,
	}
}
