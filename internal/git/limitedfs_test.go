package git

import (
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedFs_MaxFiles(t *testing.T) {
	t.Parallel()

	fs := NewLimitedFs(memfs.New())
	fs.MaxFiles = 2

	for _, name := range []string{"a", "b"} {
		f, err := fs.Create(name)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	_, err := fs.Create("c")
	assert.True(t, errors.Is(err, ErrRepositoryTooLarge))

	_, err = fs.TempFile("", "tmp")
	assert.True(t, errors.Is(err, ErrRepositoryTooLarge))
}

func TestLimitedFs_TotalFileSize(t *testing.T) {
	t.Parallel()

	fs := NewLimitedFs(memfs.New())
	fs.TotalFileSize = 10

	f, err := fs.Create("a")
	require.NoError(t, err)
	_, err = f.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	assert.True(t, errors.Is(err, ErrRepositoryTooLarge))
	require.NoError(t, f.Close())
}

func TestLimitedFs_ChrootSharesUsage(t *testing.T) {
	t.Parallel()

	fs := NewLimitedFs(memfs.New())
	fs.MaxFiles = 1
	require.NoError(t, fs.MkdirAll("sub", 0755))

	sub, err := fs.Chroot("sub")
	require.NoError(t, err)

	f, err := sub.Create("a")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = fs.Create("b")
	assert.True(t, errors.Is(err, ErrRepositoryTooLarge))
}
