package project

import "github.com/fyrsmithlabs/litweaver/internal/sanitize"

// CollectionName returns the vector store collection holding the project's
// paper chunks, e.g. "litweaver_lit_review_papers".
func CollectionName(p *Project) string {
	return sanitize.CollectionName("litweaver", p.Name, "papers")
}
