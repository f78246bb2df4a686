package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/stacklok/catalog-ingester/internal/descriptors"
	"github.com/stacklok/catalog-ingester/internal/git"
)

// DefaultDescriptorPath is read from a repository when the target names no path
const DefaultDescriptorPath = "catalog-info.yaml"

// GitTarget is the parsed form of a git location target:
//
//	<repository>[?ref=<branch>|tag=<tag>|commit=<sha>][#<path>]
type GitTarget struct {
	Repository string
	Branch     string
	Tag        string
	Commit     string
	Path       string
}

// ParseGitTarget parses a git location target
func ParseGitTarget(target string) (*GitTarget, error) {
	rest := target
	result := &GitTarget{Path: DefaultDescriptorPath}

	if idx := strings.LastIndex(rest, "#"); idx >= 0 {
		if path := strings.TrimPrefix(rest[idx+1:], "/"); path != "" {
			result.Path = path
		}
		rest = rest[:idx]
	}

	if idx := strings.LastIndex(rest, "?"); idx >= 0 {
		query, err := url.ParseQuery(rest[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
		rest = rest[:idx]

		refs := 0
		for key, values := range query {
			switch key {
			case "ref", "tag", "commit":
			default:
				return nil, fmt.Errorf("%w: unknown git target parameter %q", ErrInvalidTarget, key)
			}
			if len(values) != 1 || values[0] == "" {
				return nil, fmt.Errorf("%w: git target parameter %q needs exactly one non-empty value", ErrInvalidTarget, key)
			}
			switch key {
			case "ref":
				result.Branch = query.Get(key)
			case "tag":
				result.Tag = query.Get(key)
			case "commit":
				result.Commit = query.Get(key)
			}
			refs++
		}
		if refs > 1 {
			return nil, fmt.Errorf("%w: only one of ref, tag or commit may be specified", ErrInvalidTarget)
		}
	}

	if rest == "" {
		return nil, fmt.Errorf("%w: git repository cannot be empty", ErrInvalidTarget)
	}
	result.Repository = rest
	return result, nil
}

// String formats the target in the form ParseGitTarget accepts
func (t *GitTarget) String() string {
	var b strings.Builder
	b.WriteString(t.Repository)
	switch {
	case t.Branch != "":
		b.WriteString("?ref=" + url.QueryEscape(t.Branch))
	case t.Tag != "":
		b.WriteString("?tag=" + url.QueryEscape(t.Tag))
	case t.Commit != "":
		b.WriteString("?commit=" + url.QueryEscape(t.Commit))
	}
	if t.Path != "" && t.Path != DefaultDescriptorPath {
		b.WriteString("#" + t.Path)
	}
	return b.String()
}

type gitReader struct {
	parser *descriptors.Parser
	client git.Client
}

// NewGitReader creates a reader that clones a repository into memory and
// parses one descriptor file from it
func NewGitReader(parser *descriptors.Parser, client git.Client) Reader {
	return &gitReader{parser: parser, client: client}
}

func (r *gitReader) Read(ctx context.Context, target string) (*descriptors.ParserOutput, error) {
	gitTarget, err := ParseGitTarget(target)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	repoInfo, err := r.client.Clone(ctx, &git.CloneConfig{
		URL:    gitTarget.Repository,
		Branch: gitTarget.Branch,
		Tag:    gitTarget.Tag,
		Commit: gitTarget.Commit,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cleanupErr := r.client.Cleanup(ctx, repoInfo); cleanupErr != nil {
			slog.Warn("Failed to cleanup repository", "repository", gitTarget.Repository, "error", cleanupErr)
		}
	}()

	slog.Debug("Git clone completed",
		"repository", gitTarget.Repository,
		"branch", repoInfo.Branch,
		"commit", repoInfo.Commit,
		"duration", time.Since(startTime).String())

	data, err := r.client.GetFileContent(repoInfo, gitTarget.Path)
	if errors.Is(err, git.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s in %s", ErrTargetNotFound, gitTarget.Path, gitTarget.Repository)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", gitTarget.Path, gitTarget.Repository, err)
	}
	if len(data) > descriptors.MaxDescriptorSize {
		return nil, fmt.Errorf("%s exceeds maximum descriptor size of %d bytes", gitTarget.Path, descriptors.MaxDescriptorSize)
	}

	return r.parser.ParseDescriptors(data)
}
