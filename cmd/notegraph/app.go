package main

import (
	"fmt"

	"github.com/notegraph/notegraph/internal/cache"
	"github.com/notegraph/notegraph/internal/config"
	"github.com/notegraph/notegraph/internal/history"
	"github.com/notegraph/notegraph/internal/orchestrator"
	"github.com/notegraph/notegraph/internal/render"
	"github.com/notegraph/notegraph/internal/vcs"
	"github.com/notegraph/notegraph/internal/vcs/git"
)

// app wires the content engine from configuration.
type app struct {
	repo     *git.Git
	cache    *cache.Cache
	renderer *render.Markdown
	orch     *orchestrator.Orchestrator
	history  *history.Store // nil when history.path is empty
}

func newApp(c *config.Config) (*app, error) {
	repo, err := git.New(vcs.Options{
		URL:       c.Repo.URL,
		Branch:    c.Repo.Branch,
		LocalPath: c.Repo.LocalPath,
		Username:  c.Repo.Username,
		Token:     c.Repo.Token,
	}, newLogger("git"))
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	contentCache, err := cache.New(c.Cache.Capacity)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	renderer := render.NewMarkdown(render.WithLogger(newLogger("render")))

	orch, err := orchestrator.New(repo, renderer, contentCache, &orchestrator.Config{
		ContentPath:     c.Repo.ContentPath,
		RootName:        c.Repo.RootName,
		TreeTTL:         c.Cache.TreeTTL,
		PrecacheWorkers: c.Precache.Workers,
		Logger:          newLogger("sync"),
	})
	if err != nil {
		return nil, err
	}

	a := &app{repo: repo, cache: contentCache, renderer: renderer, orch: orch}

	if c.History.Path != "" {
		store, err := history.Open(c.History.Path, c.History.Keep, newLogger("history"))
		if err != nil {
			orch.Close()
			return nil, fmt.Errorf("history: %w", err)
		}
		a.history = store
		orch.AddListener(store)
	}

	return a, nil
}

func (a *app) Close() {
	a.orch.Close()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			newLogger("history").Printf("WARNING: %v", err)
		}
	}
}
