package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiscovery(t *testing.T) {
	basePath := "/test/base"
	discovery := NewDiscovery(basePath)

	assert.NotNil(t, discovery)
	assert.Equal(t, basePath, discovery.basePath)
}

// makePatient creates root/<id>/ and, when withMetadata is set, root/<id>/<id>.txt
func makePatient(t *testing.T, root, id string, withMetadata bool) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0755))
	if withMetadata {
		require.NoError(t, os.WriteFile(filepath.Join(dir, id+".txt"), []byte("Patient: "+id+"\n"), 0644))
	}
}

func TestFindDataFolders(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, root string)
		expected    []string
		description string
	}{
		{
			name: "patients sorted by name",
			setup: func(t *testing.T, root string) {
				makePatient(t, root, "0286", true)
				makePatient(t, root, "0284", true)
				makePatient(t, root, "0285", true)
			},
			expected:    []string{"0284", "0285", "0286"},
			description: "Should return every patient folder in name order",
		},
		{
			name: "folders without metadata skipped",
			setup: func(t *testing.T, root string) {
				makePatient(t, root, "0284", true)
				makePatient(t, root, "0290", false)
			},
			expected:    []string{"0284"},
			description: "Should skip folders that lack <id>.txt",
		},
		{
			name: "plain files ignored",
			setup: func(t *testing.T, root string) {
				makePatient(t, root, "0284", true)
				require.NoError(t, os.WriteFile(filepath.Join(root, "RECORDS"), []byte("0284\n"), 0644))
			},
			expected:    []string{"0284"},
			description: "Should ignore files at the root",
		},
		{
			name: "metadata name must match folder",
			setup: func(t *testing.T, root string) {
				dir := filepath.Join(root, "0284")
				require.NoError(t, os.MkdirAll(dir, 0755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "0285.txt"), []byte("x"), 0644))
			},
			expected:    nil,
			description: "Should only accept <id>/<id>.txt",
		},
		{
			name:        "empty root",
			setup:       func(t *testing.T, root string) {},
			expected:    nil,
			description: "Should return no ids for an empty root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)

			ids, err := NewDiscovery("").FindDataFolders(root)
			require.NoError(t, err, tt.description)
			assert.Equal(t, tt.expected, ids, tt.description)
		})
	}
}

func TestFindDataFolders_MissingRoot(t *testing.T) {
	_, err := NewDiscovery("").FindDataFolders(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFindDataFolders_RelativeToBase(t *testing.T) {
	base := t.TempDir()
	makePatient(t, filepath.Join(base, "training"), "0284", true)

	ids, err := NewDiscovery(base).FindDataFolders("training")
	require.NoError(t, err)
	assert.Equal(t, []string{"0284"}, ids)
}

func TestListDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.txt"), []byte("c"), 0644))

	dirs, err := NewDiscovery("").ListDirectories(root)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	for _, d := range dirs {
		assert.True(t, d.IsDir)
		assert.Equal(t, filepath.Join(root, d.Name), d.Path)
	}
}

func TestListDirectories_FollowsSymlinks(t *testing.T) {
	target := t.TempDir()
	makePatient(t, target, "0284", true)

	root := t.TempDir()
	if err := os.Symlink(filepath.Join(target, "0284"), filepath.Join(root, "0284")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(target, "gone"), filepath.Join(root, "dangling")))

	dirs, err := NewDiscovery("").ListDirectories(root)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "0284", dirs[0].Name)
	assert.True(t, dirs[0].IsDir)

	ids, err := NewDiscovery("").FindDataFolders(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"0284"}, ids)
}
