// Package api holds helpers shared by the configuration document types.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/macropower/crumbs/pkg/yaml"
)

// AppName names the configuration directory and project config files.
const AppName = "crumbs"

// StdinPath is the source path that reads from standard input.
const StdinPath = "-"

var (
	// ErrIsDirectory is returned when a file path points at a directory.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrNotRegular is returned for paths that are neither files nor
	// directories.
	ErrNotRegular = errors.New("unknown file state")
)

// ProjectConfigNames are the file names of project-local configuration,
// searched for by [FindUp].
var ProjectConfigNames = []string{"." + AppName + ".yaml", "." + AppName + ".yml"}

// ConfigPath returns the path of filename in the user's config directory.
// It checks $XDG_CONFIG_HOME first, then ~/.config, and finally the temp
// directory.
func ConfigPath(filename string) string {
	if xdgHome, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdgHome != "" {
		return filepath.Join(xdgHome, AppName, filename)
	}

	usrHome, err := os.UserHomeDir()
	if err == nil && usrHome != "" {
		return filepath.Join(usrHome, ".config", AppName, filename)
	}

	tmpPath := filepath.Join(os.TempDir(), AppName, filename)

	slog.Warn("could not determine user config directory, using temp path",
		slog.String("path", tmpPath),
		slog.Any("error", fmt.Errorf("$XDG_CONFIG_HOME is unset, fall back to home directory: %w", err)),
	)

	return tmpPath
}

// ReadFile reads a regular file.
func ReadFile(path string) ([]byte, error) {
	err := checkRegular(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// ReadSource reads a source file, or stdin when path is [StdinPath].
func ReadSource(path string, stdin io.Reader) ([]byte, error) {
	if path != StdinPath {
		return ReadFile(path)
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}

	return data, nil
}

func checkRegular(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	return nil
}

// MarshalYAML serializes an object to YAML bytes.
func MarshalYAML(obj any) ([]byte, error) {
	b := &bytes.Buffer{}

	enc := yaml.NewEncoder(b)

	err := enc.Encode(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}

	return b.Bytes(), nil
}

// FindUp searches for one of names in the directory of start (or start
// itself, if it is a directory) and each of its parents. It returns an
// empty string when nothing is found.
func FindUp(start string, names []string) (string, error) {
	absPath, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("get absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}

	dir := absPath
	if !info.IsDir() {
		dir = filepath.Dir(absPath)
	}

	for {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if checkRegular(candidate) == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}

		dir = parent
	}
}

// WriteDefaultFile writes defaultData to path unless a file already exists
// there. With force, an existing file is renamed to a timestamped backup
// first.
func WriteDefaultFile(path string, defaultData []byte, force bool, kind string) error {
	exists := false

	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		exists = true
	case err == nil && info.IsDir():
		return fmt.Errorf("%s: %w", path, ErrIsDirectory)
	case err == nil:
		return fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	if exists && !force {
		slog.Debug("file already exists, skipping write",
			slog.String("type", kind),
			slog.String("path", path),
		)

		return nil
	}

	err = os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	if exists {
		backupPath := fmt.Sprintf("%s.%d.old", path, time.Now().UnixNano())
		slog.Info("backing up existing file",
			slog.String("type", kind),
			slog.String("path", backupPath),
		)

		err = os.Rename(path, backupPath)
		if err != nil {
			return fmt.Errorf("rename existing %s file to backup: %w", kind, err)
		}
	}

	slog.Info("write default file",
		slog.String("type", kind),
		slog.String("path", path),
	)

	err = os.WriteFile(path, defaultData, 0o600)
	if err != nil {
		return fmt.Errorf("write %s file: %w", kind, err)
	}

	return nil
}
