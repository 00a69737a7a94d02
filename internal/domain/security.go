package domain

// RiskLevel enumerates guard outcomes.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// GuardAction describes how the router should react to a risk level.
type GuardAction string

const (
	GuardAllow           GuardAction = "allow"
	GuardConfirm         GuardAction = "confirm"
	GuardExplicitConfirm GuardAction = "explicit_confirm"
	GuardBlock           GuardAction = "block"
)

// RiskAssessment aggregates guard evaluation data.
type RiskAssessment struct {
	Level        RiskLevel
	Action       GuardAction
	Reasons      []string
	MatchedRules []string
}

// RequiresConfirmation reports whether the operator must approve first.
func (r RiskAssessment) RequiresConfirmation() bool {
	return r.Action == GuardConfirm || r.Action == GuardExplicitConfirm
}

// Blocked reports whether the command must not run at all.
func (r RiskAssessment) Blocked() bool {
	return r.Action == GuardBlock
}
