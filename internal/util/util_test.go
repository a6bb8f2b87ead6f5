package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueAppend(t *testing.T) {
	s := []string{"a", "b"}
	s = UniqueAppend(s, "b")
	assert.Equal(t, []string{"a", "b"}, s)
	s = UniqueAppend(s, "c")
	assert.Equal(t, []string{"a", "b", "c"}, s)
}

func TestFileAndDirectoryExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hosts.yaml")
	require.NoError(t, os.WriteFile(file, []byte("hosts: []\n"), 0600))

	exists, err := FileExists(file)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = FileExists(dir)
	assert.Error(t, err, "a directory is not a file")

	exists, err = DirectoryExists(dir)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = DirectoryExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateDirectoryIfNotExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "reports")
	require.NoError(t, CreateDirectoryIfNotExists(dir, 0755))
	assert.True(t, FileOrDirectoryExists(dir))
	// second call is a no-op
	require.NoError(t, CreateDirectoryIfNotExists(dir, 0755))
}
