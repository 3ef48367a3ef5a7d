package project

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestPathsFor(t *testing.T) {
	base := t.TempDir()

	paths, err := PathsFor(base, "review")
	if err != nil {
		t.Fatalf("PathsFor() error = %v", err)
	}

	if paths.Root != filepath.Join(base, "review") {
		t.Errorf("Root = %q", paths.Root)
	}
	if paths.Papers != filepath.Join(base, "review", "papers") {
		t.Errorf("Papers = %q", paths.Papers)
	}
	if paths.VectorStore != filepath.Join(base, "review", "vector_store") {
		t.Errorf("VectorStore = %q", paths.VectorStore)
	}
}

func TestPathsFor_RelativeBase(t *testing.T) {
	paths, err := PathsFor("projects", "x")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(paths.Root) {
		t.Errorf("Root should be absolute, got %q", paths.Root)
	}
}

func TestProject_Validate(t *testing.T) {
	tests := []struct {
		name    string
		project Project
		wantErr error
	}{
		{"valid", Project{ID: "550e8400-e29b-41d4-a716-446655440000", Name: "a", CreatedAt: time.Now()}, nil},
		{"empty id", Project{Name: "a"}, ErrEmptyProjectID},
		{"bad id", Project{ID: "not-a-uuid", Name: "a"}, ErrInvalidMetadata},
		{"empty name", Project{ID: "550e8400-e29b-41d4-a716-446655440000"}, ErrInvalidMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.project.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCollectionName(t *testing.T) {
	tests := map[string]string{
		"lit_review":     "litweaver_lit_review_papers",
		"Deep Learning!": "litweaver_deep_learning_papers",
		"2024-survey.v1": "litweaver_2024_survey_v1_papers",
	}

	for name, want := range tests {
		if got := CollectionName(&Project{Name: name}); got != want {
			t.Errorf("CollectionName(%q) = %q, want %q", name, got, want)
		}
	}
}
