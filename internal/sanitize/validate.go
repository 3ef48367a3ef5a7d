package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrPathTraversal indicates a path escapes its allowed root.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidProjectName indicates a project name cannot be used as a directory name.
	ErrInvalidProjectName = errors.New("invalid project name")

	// ErrInvalidPattern indicates an ignore pattern is malformed or dangerous.
	ErrInvalidPattern = errors.New("invalid or dangerous pattern")
)

// MaxProjectNameLength bounds project names, which become directory names.
const MaxProjectNameLength = 128

// dangerousPatternChars could cause ReDoS or shell injection in patterns.
var dangerousPatternChars = regexp.MustCompile(`[;\|\$\x60<>&\(\)\{\}]|\.{3,}|\*{3,}`)

// ValidateProjectName checks that name can be used as a single directory
// name under the projects base directory.
func ValidateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProjectName)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: name contains invalid UTF-8", ErrInvalidProjectName)
	}
	if len(name) > MaxProjectNameLength {
		return fmt.Errorf("%w: name exceeds %d bytes", ErrInvalidProjectName, MaxProjectNameLength)
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: name cannot start with '.'", ErrInvalidProjectName)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: name cannot contain path separators", ErrInvalidProjectName)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: name contains control characters", ErrInvalidProjectName)
		}
	}
	return nil
}

// ValidatePath cleans path, makes it absolute and, if allowedRoot is not
// empty, checks that it stays within allowedRoot.
func ValidatePath(path, allowedRoot string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if allowedRoot == "" {
		if hasTraversal(filepath.Clean(path)) {
			return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
		}
		return absPath, nil
	}

	absRoot, err := filepath.Abs(allowedRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve allowed root: %w", err)
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || hasTraversal(rel) {
		return "", fmt.Errorf("%w: %s escapes %s", ErrPathTraversal, path, allowedRoot)
	}

	return absPath, nil
}

// hasTraversal reports whether a cleaned path starts with a ".." element.
func hasTraversal(cleaned string) bool {
	return cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator))
}

// ValidateGlobPattern checks an ignore pattern for dangerous constructs and
// for syntax errors. An empty pattern is allowed.
func ValidateGlobPattern(pattern string) error {
	if pattern == "" {
		return nil
	}

	if dangerousPatternChars.MatchString(pattern) {
		return fmt.Errorf("%w: contains dangerous characters", ErrInvalidPattern)
	}

	if strings.Contains(pattern, "..") {
		return fmt.Errorf("%w: contains path traversal", ErrInvalidPattern)
	}

	if _, err := filepath.Match(pattern, "test"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	return nil
}
