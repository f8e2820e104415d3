// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package lambda

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFunctionDir(t *testing.T) string {
	t.Helper()
	baseDir := filepath.Join(t.TempDir(), "ingest")
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, packageDirName, "requests"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, packageDirName, "boto3"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "tests"), 0o755))

	files := map[string]string{
		"handler.py": "def handler(event, context):\n    return event\n",
		filepath.Join(packageDirName, "requests", "__init__.py"): "",
		filepath.Join(packageDirName, "boto3", "__init__.py"):    "",
		filepath.Join("tests", "test_handler.py"):                "",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(baseDir, name), []byte(content), 0o644))
	}
	return baseDir
}

func zipNames(t *testing.T, zipPath string) []string {
	t.Helper()
	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

// No requirements file is written, so Package skips dependency
// installation and bundles the pre-populated package directory.
func TestPackageBundlesSourceAndDependencies(t *testing.T) {
	baseDir := writeFunctionDir(t)

	zipPath, err := Package(context.Background(), PackageParams{BaseDir: baseDir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, "ingest.zip"), zipPath)

	names := zipNames(t, zipPath)
	assert.Contains(t, names, "handler.py")
	assert.Contains(t, names, "requests/__init__.py")
	assert.NotContains(t, names, "boto3/__init__.py")
	assert.NotContains(t, names, "tests/test_handler.py")

	// The scratch dependency directory is cleaned up.
	_, err = os.Stat(filepath.Join(baseDir, packageDirName))
	assert.True(t, os.IsNotExist(err))
}

func TestPackageMissingDirectory(t *testing.T) {
	_, err := Package(context.Background(), PackageParams{
		BaseDir: filepath.Join(t.TempDir(), "absent"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDependencyName(t *testing.T) {
	assert.Equal(t, "boto3", dependencyName("boto3-1.34.0.dist-info"))
	assert.Equal(t, "requests", dependencyName("requests"))
}
