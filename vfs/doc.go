// Package vfs defines the core virtual file system contract shared by every
// backend in this module: validated paths (Path), capability-typed byte
// streams (Stream and its adapters), tagged file handles (FileEntry), and
// the FileSystem interface itself.
//
// Concrete backends live in sibling packages: memoryfs (in-memory tree with
// tombstones), realfs (host OS passthrough), objectstorefs (S3-like object
// store with simulated directories), overlayfs (lower/upper composition),
// and mountfs (longest-prefix path router).
package vfs
