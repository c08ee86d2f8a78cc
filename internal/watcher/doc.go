// Package watcher watches files with fsnotify and delivers debounced change
// callbacks.
//
// A file is watched through its parent directory so that editors which save
// by renaming a new file into place keep producing events. Callers should
// treat an event as a hint to re-read the file, not as an exact change log.
package watcher
