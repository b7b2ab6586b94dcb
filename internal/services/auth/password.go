// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	_ "embed"
	"strings"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordList string

var commonPasswords = loadCommonPasswords(commonPasswordList)

func loadCommonPasswords(list string) map[string]struct{} {
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(list))
	for scanner.Scan() {
		if p := strings.ToLower(strings.TrimSpace(scanner.Text())); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// Violation codes. Handlers translate them via the "password_<code>" message ids.
const (
	CodeMinLength       = "min_length"
	CodeEntirelyNumeric = "entirely_numeric"
	CodeCommon          = "common"
	CodeTooSimilar      = "too_similar"
)

// PasswordPolicy checks new passwords.
type PasswordPolicy struct {
	MinLength    int
	CheckCommon  bool
	CheckSimilar bool
}

// DefaultPasswordPolicy returns the policy used for registration.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:    10,
		CheckCommon:  true,
		CheckSimilar: true,
	}
}

// PasswordError lists the rules a password broke.
type PasswordError struct {
	Codes []string
}

func (e *PasswordError) Error() string {
	return "password rejected: " + strings.Join(e.Codes, ", ")
}

// Check returns nil when password satisfies the policy, a *PasswordError otherwise.
// related holds user attributes (e.g. the username) the password must not resemble.
func (p *PasswordPolicy) Check(password string, related ...string) error {
	var codes []string

	if len([]rune(password)) < p.MinLength {
		codes = append(codes, CodeMinLength)
	}
	if isEntirelyNumeric(password) {
		codes = append(codes, CodeEntirelyNumeric)
	}
	if p.CheckCommon {
		if _, ok := commonPasswords[strings.ToLower(password)]; ok {
			codes = append(codes, CodeCommon)
		}
	}
	if p.CheckSimilar && resembles(password, related) {
		codes = append(codes, CodeTooSimilar)
	}

	if len(codes) == 0 {
		return nil
	}
	return &PasswordError{Codes: codes}
}

func isEntirelyNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func resembles(password string, attrs []string) bool {
	pw := strings.ToLower(password)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		a := strings.ToLower(attr)
		if strings.Contains(pw, a) || strings.Contains(a, pw) || similarity(pw, a) > 0.7 {
			return true
		}
	}
	return false
}

// similarity is the longest common subsequence relative to the longer string.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}

	return float64(prev[len(b)]) / float64(max(len(a), len(b)))
}
