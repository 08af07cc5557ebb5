package vision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClassNames_Map(t *testing.T) {
	names, err := ParseClassNames(strings.NewReader(`
path: ../datasets/coco128
names:
  0: person
  1: bicycle
  2: car
`))
	require.NoError(t, err)
	require.Equal(t, 3, names.Len())

	name, ok := names.Name(0)
	require.True(t, ok)
	require.Equal(t, "person", name)
}

func TestParseClassNames_List(t *testing.T) {
	names, err := ParseClassNames(strings.NewReader("nc: 2\nnames: ['person', 'bicycle']\n"))
	require.NoError(t, err)

	name, ok := names.Name(1)
	require.True(t, ok)
	require.Equal(t, "bicycle", name)
}

func TestParseClassNames_Missing(t *testing.T) {
	_, err := ParseClassNames(strings.NewReader("nc: 2\n"))
	require.Error(t, err)
}

func TestLoadClassNames_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coco128.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names:\n  0: person\n"), 0o644))

	names, err := LoadClassNames(path)
	require.NoError(t, err)
	require.Equal(t, 1, names.Len())

	_, err = LoadClassNames(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
