// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vfs defines types for abstract file system access and provides an
// implementation accessing the file system of the underlying OS.
package vfs

import (
	"io"
	"os"
	"path/filepath"
)

// The FileSystem interface specifies the methods used to look up game and
// config files.
type FileSystem interface {
	Open(name string) (io.ReadSeekCloser, error)
	Stat(path string) (os.FileInfo, error)
	String() string
}

// OS returns a FileSystem rooted at the directory root of the OS file
// system.
func OS(root string) FileSystem {
	return osFS(root)
}

type osFS string

func (root osFS) String() string { return "os(" + string(root) + ")" }

func (root osFS) resolve(path string) string {
	// Clean the path so that it cannot possibly begin with ../.
	// If it did, the result of filepath.Join would be outside the
	// tree rooted at root.
	path = filepath.Clean("/" + filepath.FromSlash(path))
	return filepath.Join(string(root), path)
}

func (root osFS) Open(path string) (io.ReadSeekCloser, error) {
	f, err := os.Open(root.resolve(path))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return f, nil
}

func (root osFS) Stat(path string) (os.FileInfo, error) {
	return os.Stat(root.resolve(path))
}
