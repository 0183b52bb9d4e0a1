package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"roomtrack/internal/blob"
	"roomtrack/pkg/domain"
)

const exportPrefix = "exports/"

// ErrExportsDisabled is returned when the service has no blob store.
var ErrExportsDisabled = errors.New("exports are not configured")

// ExportDocument is the JSON layout written by ExportSnapshot.
type ExportDocument struct {
	ExportedAt int64 `json:"exportedAt"`
	Items      any   `json:"items"`
	Movements  any   `json:"movements"`
	Rooms      any   `json:"rooms"`
}

// ExportResult describes a written export.
type ExportResult struct {
	Blob      blob.Info `json:"blob"`
	URL       string    `json:"url,omitempty"`
	Items     int       `json:"items"`
	Movements int       `json:"movements"`
}

// ExportSnapshot writes the current tree to the blob store under
// exports/<unix-ms>.json. URL is set when the backend can presign.
func (s *Service) ExportSnapshot(ctx context.Context) (ExportResult, error) {
	if s.blobs == nil {
		return ExportResult{}, ErrExportsDisabled
	}
	var result ExportResult
	err := s.run(ctx, "export_snapshot", entityExport, func(ctx context.Context) (string, error) {
		root, _, err := s.store.Read(ctx, "/")
		if err != nil {
			return "", fmt.Errorf("read tree: %w", err)
		}
		tree, _ := root.(map[string]any)
		now := s.now()
		doc := ExportDocument{
			ExportedAt: domain.Millis(now),
			Items:      orEmpty(tree[domain.BucketItems]),
			Movements:  orEmpty(tree[domain.BucketMovements]),
			Rooms:      orEmpty(tree[domain.BucketRooms]),
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode export: %w", err)
		}
		result.Items = len(domain.SortedKeys(doc.Items))
		result.Movements = len(domain.SortedKeys(doc.Movements))

		key := exportPrefix + strconv.FormatInt(now.UnixMilli(), 10) + ".json"
		info, err := s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
			ContentType: "application/json",
			Metadata: map[string]string{
				"items":     strconv.Itoa(result.Items),
				"movements": strconv.Itoa(result.Movements),
			},
		})
		if err != nil {
			return key, fmt.Errorf("store export: %w", err)
		}
		result.Blob = info
		url, err := s.blobs.PresignURL(ctx, key, blob.SignedURLOptions{})
		switch {
		case err == nil:
			result.URL = url
		case !errors.Is(err, blob.ErrUnsupported):
			return key, fmt.Errorf("presign export: %w", err)
		}
		return key, nil
	})
	return result, err
}

// ListExports returns previously written exports ordered by key.
func (s *Service) ListExports(ctx context.Context) ([]blob.Info, error) {
	if s.blobs == nil {
		return nil, ErrExportsDisabled
	}
	return s.blobs.List(ctx, exportPrefix)
}

func orEmpty(v any) any {
	if v == nil {
		return map[string]any{}
	}
	return v
}
