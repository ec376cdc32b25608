package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNested(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b")

	got, err := EnsureDir(target)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))

	st, err := os.Stat(got)
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	_, err = EnsureDir(target)
	require.NoError(t, err)
}

func TestEnsureDir_FailsOnFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))

	_, err := EnsureDir(filepath.Join(f, "sub"))
	assert.Error(t, err)
}

func TestResolveInDir(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "fitiq.db"), ResolveInDir("data", "fitiq.db"))
	abs := filepath.Join(t.TempDir(), "x.db")
	assert.Equal(t, abs, ResolveInDir("data", abs))
	assert.NotEmpty(t, DefaultDataDir())
}
