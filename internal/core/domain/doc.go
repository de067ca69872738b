// Package domain contains the core types of the semantic index: documents,
// chunks, embeddings, search results, and the sentinel errors shared across
// services and adapters. It has no dependencies on other internal packages.
package domain
