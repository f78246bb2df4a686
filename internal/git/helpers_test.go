package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

var testAuthor = &object.Signature{
	Name:  "Test Author",
	Email: "test@example.com",
}

// createTestRepo creates a repository on disk with one commit per file set and
// returns its path together with the commit hashes in order.
func createTestRepo(t *testing.T, commits ...map[string]string) (string, []plumbing.Hash) {
	t.Helper()

	repoDir := t.TempDir()
	repo, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)

	workTree, err := repo.Worktree()
	require.NoError(t, err)

	hashes := make([]plumbing.Hash, 0, len(commits))
	for i, files := range commits {
		for filename, content := range files {
			filePath := filepath.Join(repoDir, filename)
			require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
			require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
			_, err := workTree.Add(filename)
			require.NoError(t, err)
		}

		hash, err := workTree.Commit("Commit "+string(rune('A'+i)), &git.CommitOptions{Author: testAuthor})
		require.NoError(t, err)
		hashes = append(hashes, hash)
	}

	return repoDir, hashes
}

// createBranch creates a branch at HEAD with an extra commit
func createBranch(t *testing.T, repoDir, branch string, files map[string]string) {
	t.Helper()

	repo, err := git.PlainOpen(repoDir)
	require.NoError(t, err)
	workTree, err := repo.Worktree()
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)

	require.NoError(t, workTree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}))
	for filename, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(repoDir, filename), []byte(content), 0644))
		_, err := workTree.Add(filename)
		require.NoError(t, err)
	}
	_, err = workTree.Commit("Add "+branch, &git.CommitOptions{Author: testAuthor})
	require.NoError(t, err)

	// Return to the original branch so clones without a ref see it
	require.NoError(t, workTree.Checkout(&git.CheckoutOptions{Branch: head.Name()}))
}
