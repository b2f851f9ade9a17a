package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/zenodo-publish/internal/release"
)

const sampleJSON = `{
  // deposition template
  "metadata": {
    "upload_type": "dataset",
    "description": "WikiPathways release",
    "creators": [{"name": "WikiPathways team"}],
    "keywords": ["pathways", "gmt"],
  }
}`

const sampleYAML = `metadata:
  upload_type: dataset
  description: WikiPathways release
  creators:
    - name: WikiPathways team
  related:
    1: first
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleInput() release.Input {
	return release.Input{
		Title:    "GMT file for Homo sapiens pathways",
		Version:  "20240110",
		Released: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestLoadJSONWithComments(t *testing.T) {
	rec, err := Load(writeFile(t, "meta.json", sampleJSON))
	require.NoError(t, err)

	v, ok := rec.Field("upload_type")
	require.True(t, ok)
	assert.Equal(t, "dataset", v)
}

func TestLoadYAML(t *testing.T) {
	rec, err := Load(writeFile(t, "meta.yml", sampleYAML))
	require.NoError(t, err)

	v, ok := rec.Field("description")
	require.True(t, ok)
	assert.Equal(t, "WikiPathways release", v)

	// non-string yaml keys must still encode
	_, err = rec.MarshalJSON()
	require.NoError(t, err)
}

func TestLoadRejectsMissingMetadata(t *testing.T) {
	_, err := Load(writeFile(t, "meta.json", `{"title": "x"}`))
	assert.ErrorIs(t, err, ErrMissingMetadata)

	_, err = Load(writeFile(t, "meta.json", `{"metadata": "x"}`))
	assert.ErrorIs(t, err, ErrMissingMetadata)

	_, err = Load(writeFile(t, "meta.json", `null`))
	assert.ErrorIs(t, err, ErrMissingMetadata)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestWithRelease(t *testing.T) {
	rec, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)

	stamped := rec.WithRelease(sampleInput())

	assert.Equal(t, "GMT file for Homo sapiens pathways", stamped.Title())
	version, _ := stamped.Field("version")
	assert.Equal(t, "20240110", version)
	date, _ := stamped.Field("publication_date")
	assert.Equal(t, "2024-01-10", date)
	kind, _ := stamped.Field("upload_type")
	assert.Equal(t, "dataset", kind)

	// original untouched
	assert.Equal(t, "", rec.Title())
	_, ok := rec.Field("version")
	assert.False(t, ok)
}

func TestMarshalJSON(t *testing.T) {
	rec, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)

	out, err := rec.WithRelease(sampleInput()).MarshalJSON()
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "2024-01-10", doc["metadata"]["publication_date"])
	assert.Equal(t, "GMT file for Homo sapiens pathways", doc["metadata"]["title"])
	assert.Contains(t, rec.WithRelease(sampleInput()).Pretty(), "\n  \"metadata\"")
}

func TestPrettyIndentsNestedLevels(t *testing.T) {
	rec, err := ParseJSON([]byte(`{"metadata": {"creators": [{"name": "WikiPathways team"}]}}`))
	require.NoError(t, err)

	want := `{
  "metadata": {
    "creators": [
      {
        "name": "WikiPathways team"
      }
    ]
  }
}`
	assert.Equal(t, want, rec.Pretty())
}
