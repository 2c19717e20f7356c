// Package git provides the in-process Git operations terminal-setup needs:
// shallow clones of build recipes and discovery of the dotfiles work tree.
package git

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// Common Git errors
var (
	ErrNotAGitRepo = errors.New("not a git repository")
	ErrEmptyURL    = errors.New("repository URL cannot be empty")
)

// Cloner clones remote repositories.
type Cloner interface {
	Clone(ctx context.Context, url, dir string, opts CloneOptions) (string, error)
}

// CloneOptions tunes a clone.
type CloneOptions struct {
	// Depth limits history; 0 fetches everything.
	Depth int
}

// Client implements Cloner with go-git.
type Client struct{}

// NewClient creates a new Git client.
func NewClient() *Client {
	return &Client{}
}

// Clone clones url into dir and returns the checked-out commit hash.
// dir must not exist or be empty.
func (c *Client) Clone(ctx context.Context, url, dir string, opts CloneOptions) (string, error) {
	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}
	if url == "" {
		return "", ErrEmptyURL
	}

	repo, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:          url,
		Depth:        opts.Depth,
		SingleBranch: true,
		Tags:         gogit.NoTags,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("clone %s: %w", url, ctxErr)
		}
		return "", fmt.Errorf("clone %s: %w", url, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}

	return ref.Hash().String(), nil
}

// FindRoot returns the root of the work tree containing path,
// searching parent directories the way git does.
func FindRoot(path string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return "", fmt.Errorf("%w: %s", ErrNotAGitRepo, path)
	}
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}

	return worktree.Filesystem.Root(), nil
}
