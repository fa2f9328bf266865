package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/notegraph/notegraph/internal/vcs"
)

// clone performs a single-branch clone into the local path.
func (g *Git) clone(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(g.opts.LocalPath), 0o755); err != nil {
		return &vcs.SyncError{Op: vcs.OpClone, Path: g.opts.LocalPath, Err: err}
	}

	_, err := gogit.PlainCloneContext(ctx, g.opts.LocalPath, false, &gogit.CloneOptions{
		URL:           g.opts.URL,
		Auth:          g.auth(),
		RemoteName:    remoteName,
		ReferenceName: g.branchRef(),
		SingleBranch:  true,
	})
	if err != nil {
		// Leave no half-written clone behind for the next attempt to trip on.
		_ = os.RemoveAll(g.opts.LocalPath)
		return g.wrap(vcs.OpClone, err)
	}
	return nil
}

// pull fast-forwards the working copy to the remote branch tip. When the
// histories have diverged (force-push upstream) the working copy is reset to
// the remote tip, since the local copy is a mirror and never carries commits
// of its own.
func (g *Git) pull(ctx context.Context) error {
	repo, err := g.open()
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return &vcs.SyncError{Op: vcs.OpPull, Path: g.opts.LocalPath, Err: err}
	}

	err = wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: g.branchRef(),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, gogit.ErrNonFastForwardUpdate):
		g.logger.Printf("WARNING: %s diverged from %s/%s, resetting to remote tip",
			g.opts.LocalPath, remoteName, g.opts.Branch)
		return g.resetToRemote(ctx, repo, wt)
	default:
		return g.wrap(vcs.OpPull, err)
	}
}

func (g *Git) resetToRemote(ctx context.Context, repo *gogit.Repository, wt *gogit.Worktree) error {
	refSpec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s",
		g.opts.Branch, remoteName, g.opts.Branch))

	err := repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       g.auth(),
		Force:      true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return g.wrap(vcs.OpReset, err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, g.opts.Branch), true)
	if err != nil {
		return g.wrap(vcs.OpReset, err)
	}

	if err := wt.Reset(&gogit.ResetOptions{Commit: remoteRef.Hash(), Mode: gogit.HardReset}); err != nil {
		return g.wrap(vcs.OpReset, err)
	}
	return nil
}
