// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog fetches and caches the modules and scripts the
// platform exposes to the authenticated user.
//
// The cache is replaced wholesale on every successful [Loader.Load]
// and is immutable between loads: callers receive copies and never
// see a partially updated list.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/taskdesk/taskdesk/lib/taskapi"
)

// Source lists modules. *taskapi.Session satisfies it.
type Source interface {
	ListModules(ctx context.Context) ([]taskapi.Module, error)
}

// Loader is the in-memory module catalog.
type Loader struct {
	source Source
	logger *slog.Logger

	mu      sync.RWMutex
	modules []taskapi.Module
	loaded  bool
}

// NewLoader creates an empty Loader reading from source. A nil logger
// means slog.Default().
func NewLoader(source Source, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, logger: logger}
}

// Load fetches the catalog and replaces the cache. On failure the
// previous cache is left untouched and the error returned; callers
// treat any failure as an invalid session.
func (l *Loader) Load(ctx context.Context) ([]taskapi.Module, error) {
	modules, err := l.source.ListModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading module catalog: %w", err)
	}
	modules = cloneModules(modules)
	for index := range modules {
		if modules[index].Scripts == nil {
			modules[index].Scripts = []taskapi.Script{}
		}
	}

	l.mu.Lock()
	l.modules = modules
	l.loaded = true
	l.mu.Unlock()

	scriptCount := 0
	for _, module := range modules {
		scriptCount += len(module.Scripts)
	}
	l.logger.Debug("module catalog loaded", "modules", len(modules), "scripts", scriptCount)
	return cloneModules(modules), nil
}

// Loaded reports whether a catalog is cached.
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Modules returns a copy of the cached catalog in server order.
func (l *Loader) Modules() []taskapi.Module {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneModules(l.modules)
}

// Visible returns the cached modules whose ID satisfies permitted,
// preserving catalog order.
func (l *Loader) Visible(permitted func(moduleID string) bool) []taskapi.Module {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var visible []taskapi.Module
	for _, module := range l.modules {
		if permitted(module.ID) {
			visible = append(visible, cloneModule(module))
		}
	}
	return visible
}

// Lookup resolves a (module, script) pair against the cache.
func (l *Loader) Lookup(moduleID, scriptID string) (taskapi.Module, taskapi.Script, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, module := range l.modules {
		if module.ID != moduleID {
			continue
		}
		for _, script := range module.Scripts {
			if script.ID == scriptID {
				return cloneModule(module), script, true
			}
		}
		return cloneModule(module), taskapi.Script{}, false
	}
	return taskapi.Module{}, taskapi.Script{}, false
}

// Module returns the cached module with the given ID.
func (l *Loader) Module(moduleID string) (taskapi.Module, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, module := range l.modules {
		if module.ID == moduleID {
			return cloneModule(module), true
		}
	}
	return taskapi.Module{}, false
}

// Reset drops the cache.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.modules = nil
	l.loaded = false
	l.mu.Unlock()
}

func cloneModule(module taskapi.Module) taskapi.Module {
	module.Scripts = slices.Clone(module.Scripts)
	return module
}

func cloneModules(modules []taskapi.Module) []taskapi.Module {
	if modules == nil {
		return nil
	}
	cloned := make([]taskapi.Module, len(modules))
	for index, module := range modules {
		cloned[index] = cloneModule(module)
	}
	return cloned
}
