package model

// ViolationKind identifies a class of abusive behavior.
type ViolationKind string

const (
	ViolationQuickDump         ViolationKind = "quick_dump"
	ViolationSelfPump          ViolationKind = "self_pump"
	ViolationPreBondSell       ViolationKind = "pre_bond_sell"
	ViolationSerialDeployer    ViolationKind = "serial_deployer"
	ViolationHighProfiteer     ViolationKind = "high_profiteer"
	ViolationKnownGrifter      ViolationKind = "known_grifter"
	ViolationPreviouslyFlagged ViolationKind = "previously_flagged"
)

// Severity grades a violation.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Violation is one detected rule breach with human-readable detail.
// Timestamp is zero when the violation is not tied to a single event.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	Severity  Severity      `json:"severity"`
	Detail    string        `json:"detail"`
	Timestamp uint64        `json:"timestamp,omitempty"`
}
