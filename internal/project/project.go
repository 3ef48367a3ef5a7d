package project

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Directory and file names inside a project root.
const (
	PapersDirName      = "papers"
	VectorStoreDirName = "vector_store"
	MetadataFileName   = "project.yaml"
)

// Common errors.
var (
	ErrProjectExists   = errors.New("project already exists")
	ErrProjectNotFound = errors.New("project not found")
	ErrNotADirectory   = errors.New("not a directory")
	ErrEmptyProjectID  = errors.New("project ID cannot be empty")
	ErrInvalidMetadata = errors.New("invalid project metadata")

	// ErrPapersDirNotFound means the project root exists but has no papers
	// directory. It also matches ErrProjectNotFound with errors.Is.
	ErrPapersDirNotFound error = papersDirNotFoundError{}
)

type papersDirNotFoundError struct{}

func (papersDirNotFoundError) Error() string { return "papers directory not found" }

func (papersDirNotFoundError) Is(target error) bool { return target == ErrProjectNotFound }

// projectNamespace seeds deterministic IDs for projects without metadata.
var projectNamespace = uuid.MustParse("6f1d8a52-3c0e-4b7a-9d21-5e8f0c4a7b13")

// Paths holds the absolute locations of a project's directories.
type Paths struct {
	Root        string
	Papers      string
	VectorStore string
}

// PathsFor returns the layout of project name under baseDir.
// Paths are absolute; nothing is created.
func PathsFor(baseDir, name string) (Paths, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return Paths{}, err
	}
	root := filepath.Join(absBase, name)
	return Paths{
		Root:        root,
		Papers:      filepath.Join(root, PapersDirName),
		VectorStore: filepath.Join(root, VectorStoreDirName),
	}, nil
}

// Project is a research project and its on-disk layout.
type Project struct {
	// ID is the unique project identifier (UUID).
	ID string `yaml:"id"`

	// Name is the name the project was created with.
	Name string `yaml:"name"`

	// CreatedAt is when the project was initialised.
	CreatedAt time.Time `yaml:"created_at"`

	// Paths is derived from the base directory and never persisted.
	Paths Paths `yaml:"-"`
}

// NewProject creates a project with a generated UUID.
func NewProject(name string, paths Paths) *Project {
	return &Project{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Paths:     paths,
	}
}

// Validate checks the persisted fields.
func (p *Project) Validate() error {
	if p.ID == "" {
		return ErrEmptyProjectID
	}
	if _, err := uuid.Parse(p.ID); err != nil {
		return errors.Join(ErrInvalidMetadata, err)
	}
	if p.Name == "" {
		return errors.Join(ErrInvalidMetadata, errors.New("name cannot be empty"))
	}
	return nil
}
