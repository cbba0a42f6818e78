// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

// Package normalize canonicalizes login identifiers for case-insensitive
// matching.
//
// # Usage
//
// Usernames and emails are unique case-insensitively. Every value is stored
// and queried in its canonical form so that "Alice", "alice" and "ALICE"
// resolve to the same account, including for non-ASCII usernames.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Identifier converts a username or email into its canonical lookup key.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Applies Unicode case folding (stronger than ToLower: ß → ss, İ → i̇).
// 3. Normalizes to NFKC so visually equivalent sequences compare equal.
//
// A fresh Caser is built per call because [cases.Caser] is stateful and not
// safe for concurrent use.
func Identifier(s string) string {
	folded := cases.Fold().String(strings.TrimSpace(s))
	return norm.NFKC.String(folded)
}
