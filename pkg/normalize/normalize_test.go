// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vidora/vidora/pkg/normalize"
)

/*
TestIdentifier verifies trimming, case folding, and Unicode normalization.
*/
func TestIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase_passthrough", "alice", "alice"},
		{"uppercase_folded", "ALICE", "alice"},
		{"mixed_case", "AlIcE", "alice"},
		{"trims_whitespace", "  alice  ", "alice"},
		{"email_folded", "Alice@Example.COM", "alice@example.com"},
		{"sharp_s_folds", "straße", "strasse"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Identifier(tt.input))
		})
	}
}

/*
TestIdentifier_Idempotent verifies that normalizing twice is a no-op, since
stored values are already canonical and get compared against fresh input.
*/
func TestIdentifier_Idempotent(t *testing.T) {
	inputs := []string{"Alice", "straße", "Ｆｕｌｌｗｉｄｔｈ", "user@Example.com"}

	for _, input := range inputs {
		once := normalize.Identifier(input)
		twice := normalize.Identifier(once)
		assert.Equal(t, once, twice, "input %q", input)
	}
}
