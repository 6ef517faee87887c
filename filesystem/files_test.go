// SPDX-License-Identifier: GPL-2.0-or-later

package filesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0660); err != nil {
		t.Fatal(err)
	}
}

func TestFilesystemOrder(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, BaseGame, "doc1.txt"), "this is the first doc")
	writeFile(t, filepath.Join(base, BaseGame, "doc2.txt"), "only in base")
	writeFile(t, filepath.Join(base, "mod", "doc1.txt"), "this is the first doc 2. version")

	fs := New(base)
	b, err := fs.ReadFile("doc1.txt")
	if err != nil {
		t.Fatalf("No file doc1: %v", err)
	}
	if string(b) != "this is the first doc" {
		t.Errorf("contents: %q", b)
	}

	if err := fs.SetGameDir("mod"); err != nil {
		t.Fatal(err)
	}
	b, err = fs.ReadFile("doc1.txt")
	if err != nil {
		t.Fatalf("No file doc1: %v", err)
	}
	if string(b) != "this is the first doc 2. version" {
		t.Errorf("contents: %q", b)
	}
	b, err = fs.ReadFile("doc2.txt")
	if err != nil {
		t.Fatalf("No file doc2: %v", err)
	}
	if string(b) != "only in base" {
		t.Errorf("contents: %q", b)
	}
	if got, want := fs.GameDir(), filepath.Join(base, "mod"); got != want {
		t.Errorf("GameDir() = %q, want %q", got, want)
	}
}

func TestFilesystemMissing(t *testing.T) {
	fs := New(t.TempDir())
	if _, err := fs.ReadFile("nothing.cfg"); !os.IsNotExist(err) {
		t.Errorf("ReadFile(nothing.cfg) err = %v, want not exist", err)
	}
	if _, err := fs.ReadFile("../../etc/passwd"); err == nil {
		t.Errorf("ReadFile escaped the base directory")
	}
}

func TestBadGameDir(t *testing.T) {
	fs := New(t.TempDir())
	for _, d := range []string{"..", "a/b", `c:\q2`} {
		if err := fs.SetGameDir(d); err == nil {
			t.Errorf("SetGameDir(%q) = nil, want error", d)
		}
	}
}

func TestWriteFile(t *testing.T) {
	base := t.TempDir()
	fs := New(base)
	if err := fs.SetGameDir("mod"); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile("config.cfg", []byte("set a 1\n")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(base, "mod", "config.cfg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "set a 1\n" {
		t.Errorf("contents: %q", b)
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		path string
		ext  string
		def  string
	}{
		{"config.cfg", ".cfg", "config.cfg"},
		{"autoexec", "", "autoexec.cfg"},
		{"dir.d/file", "", "dir.d/file.cfg"},
		{`dir.d\file.txt`, ".txt", `dir.d\file.txt`},
	}
	for _, tt := range tests {
		if got := Ext(tt.path); got != tt.ext {
			t.Errorf("Ext(%q) = %q, want %q", tt.path, got, tt.ext)
		}
		if got := DefaultExt(tt.path, ".cfg"); got != tt.def {
			t.Errorf("DefaultExt(%q) = %q, want %q", tt.path, got, tt.def)
		}
	}
}
