package security

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var sqlInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)or\s+1\s*=\s*1`),
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`(?i)delete\s+from`),
	regexp.MustCompile(`(?i)insert\s+into`),
	regexp.MustCompile(`(?i)update\s+\w*\s*set\s`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)script\s*:`),
}

var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<iframe`),
	regexp.MustCompile(`(?i)<object`),
	regexp.MustCompile(`(?i)<embed`),
	regexp.MustCompile(`(?i)<link`),
	regexp.MustCompile(`(?i)<meta`),
}

// secureInputPatterns is the short combined list for general free-text
// fields such as passwords and captcha tokens.
var secureInputPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)or\s+1\s*=\s*1`),
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i);\s*(rm|del|format|shutdown)`),
	regexp.MustCompile(`(?i)\|\s*(wget|curl|nc)`),
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`\.\.\\`),
}

// suspiciousPatterns flag a whole request body for the audit risk score.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+=`),
	regexp.MustCompile(`(?i)exec\s*\(`),
}

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// ContainsSQLInjection reports whether s looks like an SQL injection attempt.
func ContainsSQLInjection(s string) bool {
	return matchAny(sqlInjectionPatterns, s)
}

// ContainsXSS reports whether s carries script or markup injection.
func ContainsXSS(s string) bool {
	return matchAny(xssPatterns, s)
}

// IsSecureInput is true when s trips none of secureInputPatterns. It is
// narrower than ContainsSQLInjection and ContainsXSS together.
func IsSecureInput(s string) bool {
	return !matchAny(secureInputPatterns, s)
}

// IsStrongPassword requires at least 8 characters with an upper case letter,
// a lower case letter, a digit and one of passwordSpecials.
func IsStrongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// IsSecureTenantID accepts canonical UUIDs other than the nil UUID.
func IsSecureTenantID(s string) bool {
	id, err := uuid.Parse(s)
	if err != nil || len(s) != 36 {
		return false
	}
	return id != uuid.Nil
}

// LooksSuspicious reports whether raw matches any coarse injection signature.
func LooksSuspicious(raw string) bool {
	return matchAny(suspiciousPatterns, raw)
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
