package domain

// Severity grades a rule result's impact on the shipment decision.
type Severity string

const (
	// SeverityError blocks approval.
	SeverityError Severity = "ERROR"
	// SeverityWarning holds approval pending review.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo is informational only and never affects the decision.
	SeverityInfo Severity = "INFO"
)

// Decision is the shipment-level compliance verdict.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionHold    Decision = "HOLD"
	DecisionReject  Decision = "REJECT"
)
