// Package repository holds the persistence layer: gorm repositories for the
// relational tables and go-redis repositories for transient state.
package repository

import "errors"

// ErrUploadNotFound is returned when no status is tracked for an upload id.
var ErrUploadNotFound = errors.New("upload not found")
