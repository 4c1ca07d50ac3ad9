package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantAndRevokeMintBurn(t *testing.T) {
	a := NewAuthority("admin")

	assert.False(t, a.IsMinter("vault"))
	require.NoError(t, a.GrantMintBurn("admin", "vault"))
	assert.True(t, a.IsMinter("vault"))

	require.NoError(t, a.RevokeMintBurn("admin", "vault"))
	assert.False(t, a.IsMinter("vault"))
}

func TestOnlyAdminMayGrant(t *testing.T) {
	a := NewAuthority("admin")

	err := a.GrantMintBurn("mallory", "mallory")
	require.Error(t, err)
	assert.False(t, a.IsMinter("mallory"))

	require.NoError(t, a.GrantMintBurn("admin", "vault"))
	err = a.RevokeMintBurn("mallory", "vault")
	require.Error(t, err)
	assert.True(t, a.IsMinter("vault"))
}

func TestAdminMayGrantItself(t *testing.T) {
	a := NewAuthority("admin")

	require.NoError(t, a.GrantMintBurn("admin", "admin"))
	assert.True(t, a.IsMinter("admin"))
}

func TestGrantLogRecordsEveryChange(t *testing.T) {
	a := NewAuthority("admin")

	require.NoError(t, a.GrantMintBurn("admin", "vault"))
	require.NoError(t, a.GrantMintBurn("admin", "gateway"))
	require.NoError(t, a.RevokeMintBurn("admin", "vault"))

	log := a.GrantLog()
	require.Len(t, log, 3)

	assert.Equal(t, "vault", log[0].Grantee)
	assert.False(t, log[0].Revoked)
	assert.Equal(t, "gateway", log[1].Grantee)
	assert.Equal(t, "vault", log[2].Grantee)
	assert.True(t, log[2].Revoked)
	for _, g := range log {
		assert.Equal(t, "admin", g.GrantedBy)
		assert.False(t, g.At.IsZero())
	}

	// The returned slice is a copy.
	log[0].Grantee = "tampered"
	assert.Equal(t, "vault", a.GrantLog()[0].Grantee)
}
