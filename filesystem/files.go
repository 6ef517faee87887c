// SPDX-License-Identifier: GPL-2.0-or-later

// Package filesystem resolves game relative file names. The files of the
// game directory hide the ones of the base directory.
package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"goquake2/filesystem/vfs"
)

// BaseGame is the directory of the original game data below the base
// directory.
const BaseGame = "baseq2"

type File interface {
	io.ReadSeekCloser
}

// FS is the search path of one process.
type FS struct {
	mutex   sync.RWMutex
	baseDir string
	gameDir string
	ns      vfs.NameSpace
}

// New creates a search path containing only baseDir/baseq2.
func New(baseDir string) *FS {
	f := &FS{baseDir: baseDir}
	f.SetGameDir("")
	return f
}

func (f *FS) BaseDir() string {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.baseDir
}

// GameDir is the directory files are written to.
func (f *FS) GameDir() string {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.gameDir
}

// SetGameDir puts baseDir/dir in front of the base game. An empty dir or
// the base game itself resets the search path.
func (f *FS) SetGameDir(dir string) error {
	if strings.Contains(dir, "..") || strings.ContainsAny(dir, `/\:`) {
		return errors.Errorf("gamedir should be a single filename, not a path: %q", dir)
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()

	root := filepath.Join(f.baseDir, BaseGame)
	f.gameDir = root
	f.ns = vfs.NameSpace{}
	f.ns.Bind("/", vfs.OS(root), "/", vfs.BindReplace)
	if dir == "" || dir == BaseGame {
		return nil
	}
	f.gameDir = filepath.Join(f.baseDir, dir)
	f.ns.Bind("/", vfs.OS(f.gameDir), "/", vfs.BindBefore)
	log.Debug().Str("ctx", "filesystem").Str("gamedir", f.gameDir).Msg("game directory added")
	return nil
}

func (f *FS) Stat(path string) (os.FileInfo, error) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.ns.Stat(path)
}

func (f *FS) Open(name string) (File, error) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.ns.Open(filepath.ToSlash(filepath.Join("/", name)))
}

func (f *FS) ReadFile(name string) ([]byte, error) {
	file, err := f.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// WriteFile writes name into the game directory, creating it if needed.
func (f *FS) WriteFile(name string, data []byte) error {
	dir := f.GameDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrap(err, "could not create game directory")
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0660)
}

func isSep(c uint8) bool {
	return c == '/' || c == '\\'
}

func Ext(path string) string {
	for i := len(path) - 1; i >= 0 && !isSep(path[i]); i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

// DefaultExt appends ext if path has none.
func DefaultExt(path, ext string) string {
	if Ext(path) != "" {
		return path
	}
	return path + ext
}
