package security_test

import (
	"strings"
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/brewcart/brewcart-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheap = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password1", cheap)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := security.VerifyPassword("very-secure-password1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := security.HashPassword("very-secure-password1", cheap)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salt must differ per hash")
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := security.HashPassword("", cheap)
	require.Error(t, err)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	hash, err := security.HashPassword("coffee-beans-42", cheap)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":       "not-a-hash",
		"wrong variant": strings.Replace(hash, "argon2id", "argon2i", 1),
		"old version":   strings.Replace(hash, "v=19", "v=16", 1),
		"bad params":    strings.Replace(hash, "m=8192,t=1,p=1", "m=x,t=1,p=1", 1),
		"zero memory":   strings.Replace(hash, "m=8192", "m=0", 1),
		"bad salt":      strings.Replace(hash, "$m=8192,t=1,p=1$", "$m=8192,t=1,p=1$!!", 1),
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := security.VerifyPassword("coffee-beans-42", encoded)
			require.ErrorIs(t, err, security.ErrInvalidHash)
		})
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("coffee-beans-42", cheap)
	require.NoError(t, err)

	assert.False(t, security.NeedsRehash(hash, cheap))

	stronger := cheap
	stronger.ArgonTime = 2
	assert.True(t, security.NeedsRehash(hash, stronger))
	assert.True(t, security.NeedsRehash("not-a-hash", cheap))
}

func TestParamsFromConfigClamps(t *testing.T) {
	p := security.ParamsFromConfig(config.PasswordConfig{ArgonMemoryKB: 1, ArgonTime: 99, ArgonParallelism: 0, ArgonSaltLen: 4, ArgonKeyLen: 1000})
	assert.Equal(t, security.ArgonParams{Memory: 8, Time: 10, Parallelism: 1, SaltLen: 8, KeyLen: 64}, p)
}

func TestCheckStrength(t *testing.T) {
	cases := map[string]bool{
		"short1":         false,
		"allletters":     false,
		"1234567890":     false,
		"espresso2shots": true,
		"café1234":       true,
	}
	for pw, ok := range cases {
		err := security.CheckStrength(pw)
		if ok {
			assert.NoError(t, err, pw)
		} else {
			assert.ErrorIs(t, err, security.ErrWeakPassword, pw)
		}
	}
}
