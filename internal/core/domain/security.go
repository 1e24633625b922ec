package domain

import "time"

// RiskLevel grades a request or a finding.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

var riskRank = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

// Max returns the higher of r and other.
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if riskRank[other] > riskRank[r] {
		return other
	}
	return r
}

// SecurityValidationResult is the per-request verdict consumed by the audit
// logger. It is never persisted.
type SecurityValidationResult struct {
	IsValid   bool      `json:"isValid"`
	Errors    []string  `json:"errors"`
	RiskLevel RiskLevel `json:"riskLevel"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditFinding is something suspicious spotted in an outbound payload.
type AuditFinding struct {
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	RiskLevel RiskLevel `json:"riskLevel"`
}

// AuditEvent is one audited request.
type AuditEvent struct {
	ID         string         `json:"id"`
	Operation  string         `json:"operation"`
	Method     string         `json:"method"`
	Path       string         `json:"path"`
	IP         string         `json:"ip"`
	UserAgent  string         `json:"userAgent"`
	UserID     string         `json:"userId,omitempty"`
	TenantID   string         `json:"tenantId,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	Status     int            `json:"status"`
	Duration   time.Duration  `json:"duration"`
	Outcome    string         `json:"outcome"`
	Error      string         `json:"error,omitempty"`
	RiskLevel  RiskLevel      `json:"riskLevel"`
	Errors     []string       `json:"errors,omitempty"`
	Findings   []AuditFinding `json:"findings,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
