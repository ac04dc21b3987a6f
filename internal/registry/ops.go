package registry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Copy duplicates a stored model under a new name in the storage directory.
// The destination must be a bare file name: anything containing a path
// separator or traversal is rejected before touching the filesystem.
func (r *Registry) Copy(source, destination string) error {
	src, ok := r.Resolve(source)
	if !ok {
		return ErrModelNotFound(source)
	}
	dest := strings.TrimSpace(destination)
	if !validDestination(dest) {
		return invalidDestinationError{dest: destination}
	}
	if !strings.HasSuffix(strings.ToLower(dest), ".gguf") {
		dest += ".gguf"
	}
	destPath := filepath.Join(r.dir, dest)
	if _, err := os.Stat(destPath); err == nil {
		return destinationExistsError{dest: dest}
	}
	if err := copyFile(src.Path, destPath); err != nil {
		return fmt.Errorf("copy model: %w", err)
	}
	return r.Rescan()
}

// Delete removes a stored model identified by name or path.
func (r *Registry) Delete(nameOrPath string) error {
	m, ok := r.Resolve(nameOrPath)
	if !ok {
		return ErrModelNotFound(nameOrPath)
	}
	if err := os.Remove(m.Path); err != nil {
		return fmt.Errorf("remove model: %w", err)
	}
	return r.Rescan()
}

func validDestination(dest string) bool {
	if dest == "" {
		return false
	}
	if strings.ContainsAny(dest, "/\\") {
		return false
	}
	if dest == "." || dest == ".." || strings.HasPrefix(dest, ".") {
		return false
	}
	return filepath.Base(dest) == dest
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
