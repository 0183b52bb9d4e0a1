// Package blob is the entry point for export storage. Callers depend on the
// Store interface; only this package wires the infra backends.
package blob

import (
	"context"

	"roomtrack/internal/blob/core"
	fsstore "roomtrack/internal/infra/blob/fs"
	memorystore "roomtrack/internal/infra/blob/memory"
	s3store "roomtrack/internal/infra/blob/s3"
)

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
	// S3Config configures the S3 / MinIO backend.
	S3Config = s3store.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
)

// NewFilesystem returns a filesystem store rooted at root.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewMemory returns an in-memory store.
func NewMemory() Store { return memorystore.New() }

// NewS3 returns an S3-compatible store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }
