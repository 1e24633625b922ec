package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

// RequestFacts is what the audit stage knows about a finished request.
type RequestFacts struct {
	Operation   string
	Body        []byte
	Authed      bool
	RateLimited bool
	Err         error
}

// Assess grades a request. Failed context validation is CRITICAL, injection
// signatures in the body or an exhausted rate limit are HIGH, and other
// authentication or authorisation failures are MEDIUM.
func Assess(f RequestFacts, now time.Time) domain.SecurityValidationResult {
	res := domain.SecurityValidationResult{RiskLevel: domain.RiskLow, Timestamp: now}

	if len(f.Body) > 0 && LooksSuspicious(string(f.Body)) {
		res.Errors = append(res.Errors, fmt.Sprintf("Potential injection attempt detected in %s", f.Operation))
		res.RiskLevel = res.RiskLevel.Max(domain.RiskHigh)
	}
	if f.RateLimited {
		res.Errors = append(res.Errors, fmt.Sprintf("Rate limit exceeded for operation %s", f.Operation))
		res.RiskLevel = res.RiskLevel.Max(domain.RiskHigh)
	}
	switch {
	case f.Err == nil:
	case errors.Is(f.Err, domain.ErrTenantBoundary), errors.Is(f.Err, domain.ErrUserInactive):
		res.Errors = append(res.Errors, "User validation failed: "+f.Err.Error())
		res.RiskLevel = res.RiskLevel.Max(domain.RiskCritical)
	case IsSecurityError(f.Err):
		res.Errors = append(res.Errors, f.Err.Error())
		res.RiskLevel = res.RiskLevel.Max(domain.RiskMedium)
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

var securityKeywords = []string{
	"unauthorized", "forbidden", "access denied", "permission",
	"authentication", "authorization", "tenant", "injection", "validation",
	"credentials", "token",
}

// IsSecurityError reports whether err belongs to the auth failure classes or
// mentions a security keyword.
func IsSecurityError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		domain.ErrInvalidCredentials, domain.ErrInvalidRefreshToken, domain.ErrInvalidToken,
		domain.ErrUnauthenticated, domain.ErrForbidden, domain.ErrTenantBoundary,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, k := range securityKeywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

var (
	uuidPattern = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	nilUUID     = "00000000-0000-0000-0000-000000000000"

	sensitivePatterns = []struct {
		kind string
		re   *regexp.Regexp
	}{
		{"password", regexp.MustCompile(`(?i)password["\s]*[:=]["\s]*[^"\s,}]+`)},
		{"ssn", regexp.MustCompile(`(?i)ssn["\s]*[:=]["\s]*\d{3}-?\d{2}-?\d{4}`)},
		{"credit_card", regexp.MustCompile(`(?i)credit[_\s]*card["\s]*[:=]["\s]*\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}`)},
	}
)

// ScanOutbound inspects a response body. Every UUID in it that is neither
// callerTenant nor one of own is reported as a possible cross-tenant leak
// (HIGH); password, SSN or credit card shaped fields are CRITICAL. The UUID
// check only runs for an authenticated caller.
func ScanOutbound(body []byte, callerTenant string, own ...string) []domain.AuditFinding {
	if len(body) == 0 {
		return nil
	}
	var findings []domain.AuditFinding

	if callerTenant != "" {
		seen := map[string]bool{nilUUID: true, strings.ToLower(callerTenant): true}
		for _, id := range own {
			seen[strings.ToLower(id)] = true
		}
		for _, id := range uuidPattern.FindAllString(string(body), -1) {
			key := strings.ToLower(id)
			if seen[key] {
				continue
			}
			seen[key] = true
			findings = append(findings, domain.AuditFinding{
				Kind:      "tenant_leak",
				Detail:    "foreign id " + id,
				RiskLevel: domain.RiskHigh,
			})
		}
	}

	raw := string(body)
	for _, p := range sensitivePatterns {
		if p.re.MatchString(raw) {
			findings = append(findings, domain.AuditFinding{
				Kind:      "sensitive_" + p.kind,
				Detail:    p.kind + " shaped value in response",
				RiskLevel: domain.RiskCritical,
			})
		}
	}
	return findings
}
