package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hikari-health/auth-core/internal/core/domain"
)

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "hello world", SanitizeString("  hel\x00lo\x07 world\x7f "))
	require.Equal(t, "line\nbreak\ttab", SanitizeString("line\nbreak\ttab"))
	require.Len(t, SanitizeString(strings.Repeat("a", MaxStringLength+50)), MaxStringLength)
}

func TestSanitize_BoundsStructures(t *testing.T) {
	arr := make([]any, 150)
	for i := range arr {
		arr[i] = "x"
	}
	obj := map[string]any{}
	for i := 0; i < 80; i++ {
		obj[fmt.Sprintf("k%d", i)] = i
	}
	in := map[string]any{
		"list":       arr,
		"wide":       obj,
		"bad key!<>": "v",
		"<>":         "dropped",
		"nested":     map[string]any{"s": "\x01ok "},
	}

	out := Sanitize(in).(map[string]any)
	require.Len(t, out["list"].([]any), MaxArrayLength)
	require.Len(t, out["wide"].(map[string]any), MaxObjectKeys)
	require.Equal(t, "v", out["badkey"])
	require.NotContains(t, out, "<>")
	require.Equal(t, "ok", out["nested"].(map[string]any)["s"])
}

func TestSanitize_DepthLimit(t *testing.T) {
	var v any = "leaf"
	for i := 0; i < MaxDepth+5; i++ {
		v = []any{v}
	}
	out := Sanitize(v)

	depth := 0
	for {
		a, ok := out.([]any)
		if !ok || len(a) == 0 {
			break
		}
		out = a[0]
		depth++
	}
	require.LessOrEqual(t, depth, MaxDepth+1)
	require.Nil(t, out)
}

func TestSanitizeValues(t *testing.T) {
	out := SanitizeValues(map[string][]string{"tenant Id": {" abc\x00 "}, "": {"x"}})
	require.Equal(t, []string{"abc"}, out["tenantId"])
	require.Len(t, out, 1)
}

func TestInjectionPredicates(t *testing.T) {
	require.True(t, ContainsSQLInjection("1 UNION SELECT password FROM users"))
	require.True(t, ContainsSQLInjection("' or 1=1"))
	require.False(t, ContainsSQLInjection("Maria Delgado"))

	require.True(t, ContainsXSS(`<script>alert(1)</script>`))
	require.True(t, ContainsXSS(`<img src=x onerror=alert(1)>`))
	require.False(t, ContainsXSS("Room 12, east wing"))

	require.False(t, IsSecureInput("../../etc/passwd"))
	require.False(t, IsSecureInput("a; rm -rf /"))
	require.False(t, IsSecureInput(`..\\windows\\system32`))
	require.False(t, IsSecureInput("x' UNION SELECT password"))
	require.True(t, IsSecureInput("General Hospital"))

	// Strong passwords that only trip the wider SQL and XSS tables stay usable.
	for _, p := range []string{"Delete From!9", "Insert Into#7", "Exec(Me)1!", "<Link>Pass1!"} {
		require.True(t, IsStrongPassword(p), p)
		require.True(t, IsSecureInput(p), p)
	}
	require.True(t, ContainsSQLInjection("Delete From!9"))
}

func TestIsStrongPassword(t *testing.T) {
	require.True(t, IsStrongPassword("Str0ng!pass"))
	require.False(t, IsStrongPassword("Sh0rt!"))
	require.False(t, IsStrongPassword("alllower1!"))
	require.False(t, IsStrongPassword("NoDigits!!"))
	require.False(t, IsStrongPassword("NoSpecial12"))
}

func TestIsSecureTenantID(t *testing.T) {
	require.True(t, IsSecureTenantID("3f1c2b9a-7d4e-4c1a-9b2f-8e6d5c4b3a21"))
	require.False(t, IsSecureTenantID("00000000-0000-0000-0000-000000000000"))
	require.False(t, IsSecureTenantID("not-a-uuid"))
	require.False(t, IsSecureTenantID("3f1c2b9a7d4e4c1a9b2f8e6d5c4b3a21"))
}

func TestValidateContext(t *testing.T) {
	user := &domain.User{ID: "u-1", TenantID: "t-1", Role: domain.RoleNurse, IsActive: true}

	ac, err := ValidateContext("t-1", user)
	require.NoError(t, err)
	require.Equal(t, "u-1", ac.UserID)

	_, err = ValidateContext("t-2", user)
	require.ErrorIs(t, err, domain.ErrTenantBoundary)

	_, err = ValidateContext("", user)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	inactive := *user
	inactive.IsActive = false
	_, err = ValidateContext("t-1", &inactive)
	require.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	ctx := WithAuth(context.Background(), AuthenticatedContext{UserID: "u-1", TenantID: "t-1"})
	ac, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "t-1", ac.TenantID)
}

func TestTenantAndRoleChecks(t *testing.T) {
	ac := AuthenticatedContext{UserID: "u-1", TenantID: "t-1", Role: domain.RoleAdmin}

	require.NoError(t, CheckTenantAccess(ac, ""))
	require.NoError(t, CheckTenantAccess(ac, "t-1"))
	err := CheckTenantAccess(ac, "t-2")
	require.ErrorIs(t, err, domain.ErrTenantBoundary)
	require.Contains(t, err.Error(), "t-2")

	require.NoError(t, CheckRole(ac, domain.RoleAdmin, domain.RoleDoctor))
	err = CheckRole(AuthenticatedContext{Role: domain.RolePatient}, domain.RoleAdmin)
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Contains(t, err.Error(), "user role: patient")
}

func TestPermissions(t *testing.T) {
	require.True(t, HasPermission(domain.RoleAdmin, "anything:at-all"))
	require.True(t, HasPermission(domain.RoleDoctor, "medical-records:create"))
	require.False(t, HasPermission(domain.RoleNurse, "medical-records:create"))
	require.False(t, HasPermission(domain.RolePatient, "patients:read"))
	require.Nil(t, PermissionsFor("janitor"))
	require.Contains(t, PermissionsFor(domain.RolePatient), "profile:read")
}

func TestAssess(t *testing.T) {
	now := time.Now()

	res := Assess(RequestFacts{Operation: "login", Body: []byte(`{"email":"a@b.c"}`)}, now)
	require.True(t, res.IsValid)
	require.Equal(t, domain.RiskLow, res.RiskLevel)

	res = Assess(RequestFacts{Operation: "login", Body: []byte(`{"email":"' union select 1"}`)}, now)
	require.False(t, res.IsValid)
	require.Equal(t, domain.RiskHigh, res.RiskLevel)

	res = Assess(RequestFacts{Operation: "login", RateLimited: true}, now)
	require.Equal(t, domain.RiskHigh, res.RiskLevel)

	res = Assess(RequestFacts{Operation: "profile", Err: domain.ErrInvalidToken}, now)
	require.Equal(t, domain.RiskMedium, res.RiskLevel)

	res = Assess(RequestFacts{Operation: "profile", Err: fmt.Errorf("%w: x", domain.ErrTenantBoundary)}, now)
	require.Equal(t, domain.RiskCritical, res.RiskLevel)

	res = Assess(RequestFacts{Operation: "profile", Err: errors.New("mongo timeout")}, now)
	require.True(t, res.IsValid)
}

func TestScanOutbound(t *testing.T) {
	own := "3f1c2b9a-7d4e-4c1a-9b2f-8e6d5c4b3a21"
	self := "5b6c7d8e-1a2b-4c3d-9e8f-0a1b2c3d4e5f"
	foreign := "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	other := "1d2e3f4a-5b6c-4d7e-8f9a-0b1c2d3e4f5a"

	body := []byte(`{"id":"` + self + `","tenantId":"` + own + `","tenant":{"id":"` + strings.ToUpper(own) + `"}}`)
	require.Empty(t, ScanOutbound(body, own, self))

	findings := ScanOutbound([]byte(`{"owner":"`+foreign+`"}`), own)
	require.Len(t, findings, 1)
	require.Equal(t, domain.RiskHigh, findings[0].RiskLevel)
	require.Equal(t, "tenant_leak", findings[0].Kind)

	body = []byte(`{"patients":[{"id":"` + foreign + `","orgId":"` + other + `"},{"tenant":{"id":"` + foreign + `"}}]}`)
	findings = ScanOutbound(body, own)
	require.Len(t, findings, 2)
	for _, f := range findings {
		require.Equal(t, domain.RiskHigh, f.RiskLevel)
	}

	findings = ScanOutbound([]byte(`{"note":"ssn: 123-45-6789"}`), "")
	require.Len(t, findings, 1)
	require.Equal(t, domain.RiskCritical, findings[0].RiskLevel)

	require.Empty(t, ScanOutbound([]byte(`{"tenantId":"00000000-0000-0000-0000-000000000000"}`), own))
	require.Empty(t, ScanOutbound([]byte(`{"owner":"`+foreign+`"}`), ""), "anonymous responses are not UUID-scanned")
}
