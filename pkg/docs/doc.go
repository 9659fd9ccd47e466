// Package docs wraps the document database endpoints of FairOS-dfs.
//
// A database is created with a set of indexed fields. Documents are JSON
// objects; Put assigns each one a random UUID stored in its "id" field.
// Find and Count select documents with a single comparison on an indexed
// field, built with Eq, Gt, Gte, Lt and Lte, or every document with All.
package docs
