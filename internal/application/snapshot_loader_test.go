package application

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/testutils"
)

const snapshotYAML = `
class:
  id: c1
  name: 1ère A
  level: 1ère
students:
  - id: a
    first_name: Alice
    last_name: Amani
    class_id: c1
    conduct_p1: Très bien
    is_abandoned: false
subjects:
  - id: math
    name: Mathématiques
    class_id: c1
    max_p1: 20
    max_p2: 20
    max_exam1: 40
    max_p3: 20
    max_p4: 20
    max_exam2: 40
grades:
  - {student_id: a, subject_id: math, period: P1, value: 18}
  - {student_id: a, subject_id: math, period: EXAM1, value: 31}
`

// TestFormatFromPath maps file extensions to decoders.
func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    SnapshotFormat
		wantErr bool
	}{
		{path: "class.yaml", want: FormatYAML},
		{path: "class.YML", want: FormatYAML},
		{path: "dir/class.json", want: FormatJSON},
		{path: "class.csv", wantErr: true},
		{path: "class", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestSnapshotLoader_Load decodes YAML and JSON documents.
func TestSnapshotLoader_Load(t *testing.T) {
	loader := NewSnapshotLoader(nil)

	t.Run("yaml", func(t *testing.T) {
		snap, err := loader.Load(strings.NewReader(snapshotYAML), FormatYAML)
		require.NoError(t, err)

		assert.Equal(t, domain.ClassID("c1"), snap.Class().ID)
		assert.Equal(t, domain.Secondary, snap.Curriculum())
		assert.True(t, snap.LevelKnown())
		assert.Equal(t, domain.Graded(31), snap.Grade("a", "math", domain.Exam1))
		assert.False(t, snap.Grade("a", "math", domain.P2).IsSet())

		sub, ok := snap.Subject("math")
		require.True(t, ok)
		assert.Equal(t, 40.0, sub.Maxima.Exam1)
	})

	t.Run("json", func(t *testing.T) {
		data := testutils.ThreeStudentClass().Data()
		raw, err := json.Marshal(data)
		require.NoError(t, err)

		snap, err := loader.Load(bytes.NewReader(raw), FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, 3, snap.Len())
		assert.Equal(t, domain.Graded(16), snap.Grade("a", "math", domain.P2))
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		_, err := loader.Load(strings.NewReader(snapshotYAML+"teachers: []\n"), FormatYAML)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "teachers")
	})

	t.Run("invalid records are rejected", func(t *testing.T) {
		src := strings.Replace(snapshotYAML, "value: 18", "value: -1", 1)
		_, err := loader.Load(strings.NewReader(src), FormatYAML)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("non-finite grades are rejected", func(t *testing.T) {
		for _, literal := range []string{".nan", ".inf", "-.inf"} {
			src := strings.Replace(snapshotYAML, "value: 18", "value: "+literal, 1)
			snap, err := loader.Load(strings.NewReader(src), FormatYAML)
			assert.Nil(t, snap, literal)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr, literal)
			assert.Contains(t, verr.Errors[0], "non-finite grade", literal)
		}
	})
}

// TestSnapshotLoader_UnknownLevel verifies the warning logged for a level
// that selects no curriculum.
func TestSnapshotLoader_UnknownLevel(t *testing.T) {
	var logs bytes.Buffer
	loader := NewSnapshotLoader(slog.New(slog.NewTextHandler(&logs, nil)))

	src := strings.Replace(snapshotYAML, "level: 1ère", "level: Terminale", 1)
	snap, err := loader.Load(strings.NewReader(src), FormatYAML)
	require.NoError(t, err)

	assert.False(t, snap.LevelKnown())
	assert.Equal(t, domain.Secondary, snap.Curriculum())
	assert.Contains(t, logs.String(), "unknown class level")
	assert.Contains(t, logs.String(), "class_level=Terminale")
	assert.Contains(t, logs.String(), "class_id=c1")
}

// TestSnapshotLoader_LoadFile picks the decoder from the extension.
func TestSnapshotLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	data := testutils.PrimaryClass().Data()

	jsonPath := filepath.Join(dir, "c7.json")
	require.NoError(t, testutils.SaveSnapshotData(data, jsonPath))

	raw, err := yaml.Marshal(data)
	require.NoError(t, err)
	yamlPath := filepath.Join(dir, "c7.yaml")
	require.NoError(t, os.WriteFile(yamlPath, raw, 0o600))

	loader := NewSnapshotLoader(nil)
	for _, path := range []string{jsonPath, yamlPath} {
		snap, err := loader.LoadFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, domain.Primary, snap.Curriculum(), path)
		assert.Len(t, snap.Subjects(), 5, path)
	}

	_, err = loader.LoadFile(filepath.Join(dir, "c7.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

// TestSnapshotDigest verifies that the digest follows the records.
func TestSnapshotDigest(t *testing.T) {
	a := testutils.ThreeStudentClass().Build(t)
	b := testutils.ThreeStudentClass().Build(t)
	c := testutils.ThreeStudentClass().Grade("c", "math", domain.P1, 11).Build(t)

	da, err := SnapshotDigest(a)
	require.NoError(t, err)
	db, err := SnapshotDigest(b)
	require.NoError(t, err)
	dc, err := SnapshotDigest(c)
	require.NoError(t, err)

	assert.Equal(t, da, db)
	assert.NotEqual(t, da, dc)
	assert.Len(t, da, 64)
}
