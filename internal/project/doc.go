// Package project manages litweaver research projects on disk.
//
// A project is a directory under the projects base directory:
//
//	<base_dir>/<name>/
//	    project.yaml     metadata (ID, name, creation time)
//	    papers/          PDFs to ingest
//	    vector_store/    embeddings written by the process command
//
// Manager creates, locates and lists projects. Each project maps to one
// vector store collection, see CollectionName.
package project
