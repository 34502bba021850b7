package detections

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNamesMetadata(t *testing.T) {
	names, err := ParseNamesMetadata("{0: 'with_mask', 1: 'without_mask', 2: 'mask_weared_incorrect'}")
	require.NoError(t, err)
	require.Equal(t, ClassNames{0: "with_mask", 1: "without_mask", 2: "mask_weared_incorrect"}, names)

	name, ok := names.ClassName(1)
	require.True(t, ok)
	require.Equal(t, "without_mask", name)

	_, ok = names.ClassName(3)
	require.False(t, ok)
}

func TestParseNamesMetadata_Invalid(t *testing.T) {
	_, err := ParseNamesMetadata("{}")
	require.Error(t, err)

	_, err = ParseNamesMetadata("{0: [unterminated")
	require.Error(t, err)
}

func TestLoadNamesFile(t *testing.T) {
	dir := t.TempDir()

	listFile := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(listFile, []byte("path: data\nnc: 3\nnames: [with_mask, without_mask, mask_weared_incorrect]\n"), 0644))
	names, err := LoadNamesFile(listFile)
	require.NoError(t, err)
	require.Equal(t, "mask_weared_incorrect", names[2])

	mapFile := filepath.Join(dir, "map.yaml")
	require.NoError(t, os.WriteFile(mapFile, []byte("names:\n  0: with_mask\n  1: without_mask\n"), 0644))
	names, err = LoadNamesFile(mapFile)
	require.NoError(t, err)
	require.Equal(t, ClassNames{0: "with_mask", 1: "without_mask"}, names)

	emptyFile := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyFile, []byte("nc: 3\n"), 0644))
	_, err = LoadNamesFile(emptyFile)
	require.Error(t, err)

	_, err = LoadNamesFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
