// Package pod manages FairOS-dfs pods, the per-user storage namespaces that
// hold directories, files, key-value stores and document databases.
//
// A pod must be opened with the owner's password before the fs, kv and docs
// clients can use it.
package pod
