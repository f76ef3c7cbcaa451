package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashSecret(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"hash-secret", "123456"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("123456")))
}

func TestHashSecret_RequiresOneArg(t *testing.T) {
	rootCmd.SetArgs([]string{"hash-secret"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	assert.Error(t, rootCmd.Execute())
}
