// Package scaffold writes a FastAPI project skeleton into a directory.
//
// All files are rendered in memory before anything touches the disk. Writing
// then goes through a journal: every directory and file the run creates or
// overwrites is recorded, and any failure rolls the journal back so the
// target is left as it was found. Files that already hold the rendered
// content are left untouched, which makes repeated runs idempotent.
package scaffold
