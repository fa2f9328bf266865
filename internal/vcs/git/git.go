// Package git provides a go-git implementation of vcs.RepositorySync.
//
// The working copy is cloned on first use and pulled on every subsequent
// Ensure. A directory at the target path that is not a git working copy is
// removed before cloning.
package git

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/notegraph/notegraph/internal/vcs"
)

const remoteName = "origin"

// Git implements vcs.RepositorySync on top of go-git.
type Git struct {
	opts   vcs.Options
	logger *log.Logger

	// mu serializes operations on the working copy; go-git does not
	// guard a repository against concurrent worktree mutation.
	mu sync.Mutex
}

// New creates a Git RepositorySync. LocalPath is required; URL may be empty
// when an existing working copy is only ever read.
func New(opts vcs.Options, logger *log.Logger) (*Git, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("local path is required")
	}
	abs, err := filepath.Abs(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("resolving local path: %w", err)
	}
	opts.LocalPath = abs
	opts.Branch = opts.BranchOrDefault()

	if logger == nil {
		logger = log.New(os.Stderr, "[git] ", log.LstdFlags)
	}

	return &Git{opts: opts, logger: logger}, nil
}

// LocalPath returns the absolute working copy path.
func (g *Git) LocalPath() string {
	return g.opts.LocalPath
}

// Branch returns the branch this instance tracks.
func (g *Git) Branch() string {
	return g.opts.Branch
}

// Ensure clones the repository if absent and pulls it otherwise.
func (g *Git) Ensure(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if isWorkingCopy(g.opts.LocalPath) {
		g.logger.Printf("Pulling %s (branch %s)", g.opts.LocalPath, g.opts.Branch)
		if err := g.pull(ctx); err != nil {
			return "", err
		}
		return g.opts.LocalPath, nil
	}

	if g.opts.URL == "" {
		return "", &vcs.SyncError{Op: vcs.OpClone, Path: g.opts.LocalPath, Err: vcs.ErrNoRemote}
	}

	if _, err := os.Stat(g.opts.LocalPath); err == nil {
		g.logger.Printf("WARNING: %s exists but is not a git working copy, removing", g.opts.LocalPath)
		if err := os.RemoveAll(g.opts.LocalPath); err != nil {
			return "", &vcs.SyncError{Op: vcs.OpClone, Path: g.opts.LocalPath, Err: err}
		}
	}

	g.logger.Printf("Cloning %s (branch %s) into %s", g.opts.URL, g.opts.Branch, g.opts.LocalPath)
	if err := g.clone(ctx); err != nil {
		return "", err
	}
	return g.opts.LocalPath, nil
}

// Head returns the hash of the checked out commit.
func (g *Git) Head(ctx context.Context) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", &vcs.SyncError{Op: vcs.OpOpen, Path: g.opts.LocalPath, Err: err}
	}
	return ref.Hash().String(), nil
}

func (g *Git) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(g.opts.LocalPath)
	if err != nil {
		return nil, &vcs.SyncError{Op: vcs.OpOpen, Path: g.opts.LocalPath, Err: err}
	}
	return repo, nil
}

func (g *Git) branchRef() plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(g.opts.Branch)
}

// auth returns HTTP basic auth when a token is configured, nil otherwise.
func (g *Git) auth() transport.AuthMethod {
	if g.opts.Token == "" {
		return nil
	}
	username := g.opts.Username
	if username == "" {
		// Hosting providers accept any non-empty user name with a token.
		username = "git"
	}
	return &http.BasicAuth{Username: username, Password: g.opts.Token}
}

// wrap converts a go-git error into a *vcs.SyncError, tagging
// authentication failures with vcs.ErrAuth.
func (g *Git) wrap(op string, err error) error {
	if errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) {
		err = fmt.Errorf("%w: %v", vcs.ErrAuth, err)
	}
	return &vcs.SyncError{Op: op, Path: g.opts.LocalPath, Err: err}
}

func isWorkingCopy(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}
