package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fyrsmithlabs/litweaver/internal/sanitize"
)

// Manager creates and locates projects under a base directory.
type Manager interface {
	// Create lays out a new project and writes its metadata.
	Create(ctx context.Context, name, baseDir string) (*Project, error)

	// Get locates an existing project.
	Get(ctx context.Context, name, baseDir string) (*Project, error)

	// List returns every project under baseDir, sorted by name.
	List(ctx context.Context, baseDir string) ([]*Project, error)
}

// manager implements Manager on the local filesystem.
type manager struct{}

// NewManager creates a filesystem-backed project manager.
func NewManager() Manager {
	return &manager{}
}

// Create creates baseDir/name with papers/ and vector_store/ inside.
// If any step fails the partially created project root is removed.
func (m *manager) Create(ctx context.Context, name, baseDir string) (*Project, error) {
	if err := sanitize.ValidateProjectName(name); err != nil {
		return nil, err
	}

	paths, err := PathsFor(baseDir, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project paths: %w", err)
	}

	if _, err := os.Lstat(paths.Root); err == nil {
		return nil, fmt.Errorf("%w: '%s' at %s", ErrProjectExists, name, paths.Root)
	}

	if err := os.MkdirAll(filepath.Dir(paths.Root), 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	// Mkdir rather than MkdirAll so a concurrent init of the same name loses cleanly
	if err := os.Mkdir(paths.Root, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: '%s' at %s", ErrProjectExists, name, paths.Root)
		}
		return nil, fmt.Errorf("failed to create project root: %w", err)
	}

	p := NewProject(name, paths)
	if err := m.populate(p); err != nil {
		_ = os.RemoveAll(paths.Root)
		return nil, err
	}

	return p, nil
}

func (m *manager) populate(p *Project) error {
	for _, dir := range []string{p.Paths.Papers, p.Paths.VectorStore} {
		if err := os.Mkdir(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return writeMetadata(p)
}

// Get returns the project at baseDir/name.
//
// Returns ErrProjectNotFound if the root is missing, ErrPapersDirNotFound if
// papers/ is missing and ErrNotADirectory if either is a regular file.
func (m *manager) Get(ctx context.Context, name, baseDir string) (*Project, error) {
	if err := sanitize.ValidateProjectName(name); err != nil {
		return nil, err
	}

	paths, err := PathsFor(baseDir, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project paths: %w", err)
	}

	if err := requireDir(paths.Root, ErrProjectNotFound); err != nil {
		return nil, err
	}
	if err := requireDir(paths.Papers, ErrPapersDirNotFound); err != nil {
		return nil, err
	}

	return readMetadata(name, paths)
}

func requireDir(path string, notFound error) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", notFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, path)
	}
	return nil
}

// List returns every directory under baseDir that looks like a project.
// A missing baseDir yields an empty list.
func (m *manager) List(ctx context.Context, baseDir string) ([]*Project, error) {
	entries, err := os.ReadDir(baseDir)
	if errors.Is(err, os.ErrNotExist) {
		return []*Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read projects directory: %w", err)
	}

	projects := make([]*Project, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || sanitize.ValidateProjectName(entry.Name()) != nil {
			continue
		}
		p, err := m.Get(ctx, entry.Name(), baseDir)
		if errors.Is(err, ErrProjectNotFound) || errors.Is(err, ErrNotADirectory) || errors.Is(err, ErrInvalidMetadata) {
			continue
		}
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})

	return projects, nil
}
