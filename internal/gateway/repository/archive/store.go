// Package archive keeps JSON snapshots of analyses and workflow stages,
// grouped under the owning analysis ID.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clonescout/internal/util/jsonutil"
)

// Store persists snapshot blobs keyed by analysis ID and file name.
type Store interface {
	Put(ctx context.Context, analysisID, name string, content []byte) error
	Get(ctx context.Context, analysisID, name string) ([]byte, error)
	GetURL(ctx context.Context, analysisID, name string) (string, error)
	List(ctx context.Context, analysisID string) ([]string, error)
}

var ErrNotFound = errors.New("snapshot not found")

const AnalysisFile = "analysis.json"

// StageFile is the snapshot name for workflow stage n.
func StageFile(n int) string { return fmt.Sprintf("stage-%d.json", n) }

func objectKey(analysisID, name string) string {
	normalized := strings.TrimLeft(strings.TrimSpace(name), "/")
	return strings.TrimSpace(analysisID) + "/" + normalized
}

func validate(analysisID, name string) error {
	if strings.TrimSpace(analysisID) == "" {
		return fmt.Errorf("analysis id is required")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// PutJSON stores v as indented JSON without HTML escaping.
func PutJSON(ctx context.Context, s Store, analysisID, name string, v any) error {
	b, err := jsonutil.MarshalNoEscapeIndent(v, "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.Put(ctx, analysisID, name, b)
}
