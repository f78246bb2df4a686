// Package git clones repositories into memory and reads descriptor files from them.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client defines the interface for Git operations
type Client interface {
	// Clone clones a repository with the given configuration
	Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error)

	// GetFileContent retrieves the content of a file from the repository
	GetFileContent(repoInfo *RepositoryInfo, path string) ([]byte, error)

	// Cleanup releases the in-memory repository
	Cleanup(ctx context.Context, repoInfo *RepositoryInfo) error
}

// MaxFileSize caps a single file read from a repository
const MaxFileSize = 16 * 1024 * 1024

// ErrFileNotFound is returned by GetFileContent when the path is not in the tree
var ErrFileNotFound = errors.New("file not found in repository")

var errNilRepository = errors.New("repository is nil")

type defaultGitClient struct{}

// NewDefaultGitClient creates a go-git backed Client
func NewDefaultGitClient() Client {
	return &defaultGitClient{}
}

// Clone clones a repository into in-memory filesystems
func (c *defaultGitClient) Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error) {
	if config == nil || config.URL == "" {
		return nil, errors.New("repository URL is required")
	}

	cloneOptions := cloneOptionsFor(config)

	// go-git wants separate filesystems for the storer and the worktree
	workFs := NewLimitedFs(memfs.New())
	storerFs := NewLimitedFs(memfs.New())
	storerCache := cache.NewObjectLRUDefault()
	storer := filesystem.NewStorage(storerFs, storerCache)

	slog.Debug("Cloning repository",
		"url", config.URL,
		"branch", config.Branch,
		"tag", config.Tag,
		"commit", config.Commit)

	repo, err := git.CloneContext(ctx, storer, workFs, cloneOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", config.URL, err)
	}

	repoInfo := &RepositoryInfo{
		Repository:       repo,
		RemoteURL:        config.URL,
		storerFilesystem: storerFs,
		objectCache:      storerCache,
	}

	if config.Commit != "" {
		if err := checkoutCommit(repo, config.Commit); err != nil {
			return nil, err
		}
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("repository has no HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		repoInfo.Branch = head.Name().Short()
	}
	repoInfo.Commit = head.Hash().String()

	return repoInfo, nil
}

// cloneOptionsFor clones branches and tags shallowly. A pinned commit may be
// anywhere in history, so it needs the full default branch.
func cloneOptionsFor(config *CloneConfig) *git.CloneOptions {
	opts := &git.CloneOptions{URL: config.URL}
	if config.Commit != "" {
		return opts
	}

	opts.Depth = 1
	switch {
	case config.Branch != "":
		opts.ReferenceName = plumbing.NewBranchReferenceName(config.Branch)
		opts.SingleBranch = true
	case config.Tag != "":
		opts.ReferenceName = plumbing.NewTagReferenceName(config.Tag)
		opts.SingleBranch = true
	}
	return opts
}

func checkoutCommit(repo *git.Repository, commit string) error {
	workTree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := workTree.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(commit)}); err != nil {
		return fmt.Errorf("commit %s not found: %w", commit, err)
	}
	return nil
}

// GetFileContent reads a file from the commit at HEAD. Files larger than
// MaxFileSize are rejected before their blob is read.
func (*defaultGitClient) GetFileContent(repoInfo *RepositoryInfo, path string) ([]byte, error) {
	if repoInfo == nil || repoInfo.Repository == nil {
		return nil, errNilRepository
	}

	commit, err := headCommit(repoInfo.Repository)
	if err != nil {
		return nil, err
	}

	file, err := commit.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, commit.Hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", path, err)
	}
	if file.Size > MaxFileSize {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", path, file.Size, MaxFileSize)
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("repository has no HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("HEAD %s is not a commit: %w", ref.Hash(), err)
	}
	return commit, nil
}

// Cleanup drops every in-memory structure held by the repository
func (*defaultGitClient) Cleanup(_ context.Context, repoInfo *RepositoryInfo) error {
	if repoInfo == nil || repoInfo.Repository == nil {
		return errNilRepository
	}

	if repoInfo.objectCache != nil {
		repoInfo.objectCache.Clear()
	}

	worktree, err := repoInfo.Repository.Worktree()
	if err == nil && worktree.Filesystem != nil {
		_ = util.RemoveAll(worktree.Filesystem, "/")
	}

	if repoInfo.storerFilesystem != nil {
		_ = util.RemoveAll(repoInfo.storerFilesystem, "/")
	}

	repoInfo.objectCache = nil
	repoInfo.storerFilesystem = nil
	repoInfo.Repository = nil

	runtime.GC()
	return nil
}
