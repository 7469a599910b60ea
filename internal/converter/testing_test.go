package converter

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// testHelper provides utilities for testing the converter
type testHelper struct {
	t *testing.T
}

// newTestHelper creates a new testHelper instance
func newTestHelper(t *testing.T) *testHelper {
	return &testHelper{t: t}
}

// readFixture reads a test fixture file from testdata directory
func (h *testHelper) readFixture(name string) []byte {
	path := filepath.Join("testdata", name)
	content, err := os.ReadFile(path)
	if err != nil {
		h.t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return content
}

// installTool writes an executable shell script called name into a fresh
// directory and makes that directory the only entry on PATH.
func (h *testHelper) installTool(name, script string) string {
	h.t.Helper()
	if runtime.GOOS == "windows" {
		h.t.Skip("fake conversion tools are shell scripts")
	}
	dir := h.t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		h.t.Fatalf("failed to write fake tool %s: %v", name, err)
	}
	h.t.Setenv("PATH", dir)
	return path
}

// emptyPath leaves PATH pointing at an empty directory.
func (h *testHelper) emptyPath() {
	h.t.Setenv("PATH", h.t.TempDir())
}

// writeTemplate creates a .bicep source file in a temp dir.
func (h *testHelper) writeTemplate(name string) string {
	h.t.Helper()
	path := filepath.Join(h.t.TempDir(), name)
	if err := os.WriteFile(path, []byte("param location string = resourceGroup().location\n"), 0644); err != nil {
		h.t.Fatalf("failed to write template: %v", err)
	}
	return path
}
