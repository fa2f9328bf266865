// Package vcs defines the repository synchronization capability consumed by
// the content engine.
//
// The engine never talks to a version control system directly. It asks a
// RepositorySync for a local working copy that matches the configured branch
// of the remote, and for the earliest commit time of individual files. The
// only implementation lives in internal/vcs/git and is built on go-git, so no
// git binary is required at runtime.
//
// # Usage
//
//	repo, err := git.New(vcs.Options{
//	    URL:       "https://github.com/acme/notes.git",
//	    Branch:    "main",
//	    LocalPath: "./data/notes",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	local, err := repo.Ensure(ctx)
//	if err != nil {
//	    if errors.Is(err, vcs.ErrAuth) {
//	        // credentials rejected by the remote
//	    }
//	    log.Fatal(err)
//	}
package vcs

import (
	"context"
	"time"
)

// RepositorySync ensures a local working copy of a remote repository exists
// and is up to date.
type RepositorySync interface {
	// Ensure clones the repository if no local copy exists, or pulls the
	// configured branch if one does. It returns the local working copy path.
	// Repeated calls converge on "local copy matches the remote branch tip".
	Ensure(ctx context.Context) (string, error)

	// FirstCommitTime returns the time of the earliest commit touching path.
	// It never fails: when history is unavailable it falls back to the
	// file's modification time, and finally to the current time.
	FirstCommitTime(ctx context.Context, path string) time.Time

	// Head returns the hash of the currently checked out commit.
	Head(ctx context.Context) (string, error)
}

// Options configures a RepositorySync implementation.
type Options struct {
	// URL is the remote repository URL.
	URL string

	// Branch is the branch to clone and pull. Defaults to "main".
	Branch string

	// LocalPath is where the working copy lives on disk.
	LocalPath string

	// Username and Token are used for HTTP basic auth when Token is set.
	Username string
	Token    string
}

// DefaultBranch is used when Options.Branch is empty.
const DefaultBranch = "main"

// BranchOrDefault returns the configured branch or DefaultBranch.
func (o Options) BranchOrDefault() string {
	if o.Branch == "" {
		return DefaultBranch
	}
	return o.Branch
}
