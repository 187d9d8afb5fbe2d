package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloudecole/go-bulletin/internal/domain"
)

// ErrUnsupportedFormat is returned for snapshot files that are neither
// YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported snapshot format")

// SnapshotFormat is the encoding of a snapshot document.
type SnapshotFormat string

// Supported snapshot encodings.
const (
	FormatYAML SnapshotFormat = "yaml"
	FormatJSON SnapshotFormat = "json"
)

// FormatFromPath infers the snapshot encoding from a file extension.
func FormatFromPath(path string) (SnapshotFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// SnapshotLoader reads class snapshots from YAML or JSON documents.
type SnapshotLoader struct {
	logger *slog.Logger
}

// NewSnapshotLoader creates a SnapshotLoader. A nil logger uses
// slog.Default.
func NewSnapshotLoader(logger *slog.Logger) *SnapshotLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotLoader{logger: logger}
}

// LoadFile reads one snapshot, choosing the decoder from the file
// extension.
func (l *SnapshotLoader) LoadFile(path string) (*domain.Snapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := l.Load(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Load decodes and indexes one snapshot document. Unknown fields are
// rejected. A class level that selects no curriculum is logged and the
// snapshot falls back to the secondary curriculum.
func (l *SnapshotLoader) Load(r io.Reader, format SnapshotFormat) (*domain.Snapshot, error) {
	data, err := decodeSnapshotData(r, format)
	if err != nil {
		return nil, err
	}

	snap, err := domain.NewSnapshot(data)
	if err != nil {
		return nil, err
	}

	if !snap.LevelKnown() {
		l.logger.Warn("unknown class level, using secondary curriculum",
			"class_id", snap.Class().ID,
			"class_level", snap.Class().Level,
		)
	}

	return snap, nil
}

func decodeSnapshotData(r io.Reader, format SnapshotFormat) (domain.SnapshotData, error) {
	var data domain.SnapshotData

	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)
		if err := decoder.Decode(&data); err != nil {
			return data, fmt.Errorf("YAML decode failed: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(r)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&data); err != nil {
			return data, fmt.Errorf("JSON decode failed: %w", err)
		}
	default:
		return data, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return data, nil
}

// SnapshotDigest returns the SHA256 of the canonical JSON encoding of the
// snapshot records. Two snapshots with the same records in the same order
// share a digest.
func SnapshotDigest(snap *domain.Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(snap.Data()); err != nil {
		return "", fmt.Errorf("failed to encode snapshot for hashing: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}
