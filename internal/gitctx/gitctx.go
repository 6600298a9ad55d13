// Package gitctx wraps the go-git operations forge needs: detecting an
// enclosing repository and creating a repository with an initial commit.
package gitctx

import (
	"errors"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Fallback identity for commits when the user has none configured.
const (
	DefaultAuthorName  = "forge"
	DefaultAuthorEmail = "forge@localhost"
)

// InitOptions configures Init.
type InitOptions struct {
	AuthorName  string
	AuthorEmail string
	Message     string
	When        time.Time
}

// InsideRepo reports whether dir is inside an existing git work tree.
func InsideRepo(dir string) bool {
	_, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	return err == nil
}

// GlobalIdentity returns user.name and user.email from the global git
// config. Missing values come back empty.
func GlobalIdentity() (name, email string) {
	cfg, err := config.LoadConfig(config.GlobalScope)
	if err != nil {
		return "", ""
	}
	return cfg.User.Name, cfg.User.Email
}

// Init creates a repository at dir, stages every non-ignored file and
// records an initial commit. It returns the commit hash.
func Init(dir string, opts InitOptions) (string, error) {
	if opts.AuthorName == "" {
		opts.AuthorName = DefaultAuthorName
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = DefaultAuthorEmail
	}
	if opts.Message == "" {
		opts.Message = "Initial commit"
	}
	if opts.When.IsZero() {
		opts.When = time.Now()
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryAlreadyExists) {
			return "", fmt.Errorf("git repository already exists at %s", dir)
		}
		return "", fmt.Errorf("git init: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("stage files: %w", err)
	}
	hash, err := wt.Commit(opts.Message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  opts.AuthorName,
			Email: opts.AuthorEmail,
			When:  opts.When,
		},
	})
	if err != nil {
		return "", fmt.Errorf("initial commit: %w", err)
	}
	return hash.String(), nil
}
