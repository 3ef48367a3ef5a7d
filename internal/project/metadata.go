package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

func writeMetadata(p *Project) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project metadata: %w", err)
	}
	path := filepath.Join(p.Paths.Root, MetadataFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project metadata: %w", err)
	}
	return nil
}

// readMetadata loads project.yaml. A missing file yields metadata derived
// from the directory so projects laid out by hand remain usable.
func readMetadata(name string, paths Paths) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(paths.Root, MetadataFileName))
	if errors.Is(err, os.ErrNotExist) {
		return synthesizeMetadata(name, paths), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project metadata: %w", err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, paths.Root, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", paths.Root, err)
	}
	p.Paths = paths
	return &p, nil
}

func synthesizeMetadata(name string, paths Paths) *Project {
	p := &Project{
		ID:    uuid.NewSHA1(projectNamespace, []byte(paths.Root)).String(),
		Name:  name,
		Paths: paths,
	}
	if info, err := os.Stat(paths.Root); err == nil {
		p.CreatedAt = info.ModTime().UTC()
	}
	return p
}
