// Copyright (c) 2026 Vidora. All rights reserved.
// Author: eng@vidora.app

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidora/vidora/internal/platform/sec"
)

/*
TestHashPassword verifies the bcrypt round trip and that hashes are salted.
*/
func TestHashPassword(t *testing.T) {
	password := "correct horse battery staple"

	hash, err := sec.HashPassword(password)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	// Same input hashes to a different value (random salt).
	hash2, err := sec.HashPassword(password)
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)

	assert.True(t, sec.CheckPasswordHash(password, hash))
	assert.True(t, sec.CheckPasswordHash(password, hash2))
}

/*
TestCheckPasswordHash_Mismatch verifies wrong passwords and garbage hashes fail.
*/
func TestCheckPasswordHash_Mismatch(t *testing.T) {
	hash, err := sec.HashPassword("secret-password")
	require.NoError(t, err)

	assert.False(t, sec.CheckPasswordHash("wrong-password", hash))
	assert.False(t, sec.CheckPasswordHash("secret-password", "not-a-bcrypt-hash"))
	assert.False(t, sec.CheckPasswordHash("", hash))
}
