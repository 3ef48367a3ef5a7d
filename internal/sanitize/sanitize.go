// Package sanitize turns user-supplied names into safe identifiers and
// validates names and paths before they reach the filesystem.
//
// Collection names in both vector stores (Qdrant, chromem) must match
// ^[a-z0-9_]{1,64}$; Identifier and CollectionName always produce such names.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MaxIdentifierLength is the maximum length of a collection name.
	MaxIdentifierLength = 64

	// HashSuffixLength is the length of the "_<8 hex chars>" suffix added on truncation.
	HashSuffixLength = 9

	// DefaultIdentifier is used when sanitization produces an empty result.
	DefaultIdentifier = "default"
)

// Identifier lowercases s, maps every character outside [a-z0-9_] to an
// underscore, collapses runs of underscores and trims them from both ends.
// Results longer than MaxIdentifierLength are truncated with a hash suffix.
//
//	"Lit Review 2024" -> "lit_review_2024"
//	"café-notes"      -> "caf_notes"
//	"" or "!!!"       -> "default"
func Identifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingUnderscore := false
	for _, r := range strings.ToLower(s) {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !valid {
			pendingUnderscore = true
			continue
		}
		if pendingUnderscore && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingUnderscore = false
		b.WriteRune(r)
	}

	out := b.String()
	if out == "" {
		return DefaultIdentifier
	}
	if len(out) > MaxIdentifierLength {
		out = truncateWithHash(out)
	}
	return out
}

// truncateWithHash shortens s to MaxIdentifierLength, keeping it unique by
// appending the first 8 hex chars of its sha256.
func truncateWithHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	suffix := "_" + hex.EncodeToString(hash[:])[:8]

	base := strings.TrimRight(s[:MaxIdentifierLength-HashSuffixLength], "_")
	return base + suffix
}

// CollectionName builds "<namespace>_<name>_<suffix>" from sanitized parts.
// An empty suffix is omitted.
//
//	CollectionName("litweaver", "Lit Review", "papers") -> "litweaver_lit_review_papers"
func CollectionName(namespace, name, suffix string) string {
	parts := []string{Identifier(namespace), Identifier(name)}
	if suffix != "" {
		parts = append(parts, Identifier(suffix))
	}

	collection := strings.Join(parts, "_")
	if len(collection) > MaxIdentifierLength {
		collection = truncateWithHash(collection)
	}
	return collection
}
