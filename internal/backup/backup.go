// Package backup zips the runtime state files (task queue, heartbeat state,
// memory database, approval audit log) into timestamped archives under
// <home>/backups and restores them on demand.
package backup

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// stateFiles are the files a backup captures, relative to home. Only the ones
// that exist are archived.
var stateFiles = []string{
	"heartbeat_state.json",
	"tasks.json",
	"memory.db",
	"approval_audit.log",
}

// Dir returns the backup directory under home.
func Dir(home string) string {
	return filepath.Join(home, "backups")
}

// Entry describes one file inside an archive.
type Entry struct {
	Name string
	Size uint64
}

// Create writes a new timestamped archive and returns its path. out, when
// non-empty, overrides the default <home>/backups/state-<stamp>.zip path.
func Create(home, out string) (string, error) {
	target := out
	if target == "" {
		if err := os.MkdirAll(Dir(home), 0o755); err != nil {
			return "", err
		}
		stamp := time.Now().Format("20060102T150405")
		target = filepath.Join(Dir(home), "state-"+stamp+".zip")
	} else if !strings.HasSuffix(target, ".zip") {
		target += ".zip"
	}

	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	zw := zip.NewWriter(f)

	wrote := 0
	for _, name := range stateFiles {
		src := filepath.Join(home, name)
		if err := addFile(zw, src, name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			_ = zw.Close()
			_ = f.Close()
			return "", err
		}
		wrote++
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if wrote == 0 {
		_ = os.Remove(target)
		return "", errors.New("backup: no state files exist yet")
	}
	return target, nil
}

func addFile(zw *zip.Writer, src, arcname string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = arcname
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// List returns the archive filenames under <home>/backups, newest first.
func List(home string) ([]string, error) {
	entries, err := os.ReadDir(Dir(home))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Inspect lists the entries inside an archive.
func Inspect(archive string) ([]Entry, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	var out []Entry
	for _, f := range zr.File {
		out = append(out, Entry{Name: f.Name, Size: f.UncompressedSize64})
	}
	return out, nil
}

// Restore unpacks an archive into home, overwriting existing state files.
// Archive member names are sanitized so a crafted zip cannot write outside
// home. Returns the restored paths.
func Restore(archive, home string) ([]string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	var restored []string
	for _, f := range zr.File {
		name := path.Clean(f.Name)
		if name == "." || strings.HasPrefix(name, "..") || path.IsAbs(name) {
			return restored, fmt.Errorf("backup: unsafe archive member %q", f.Name)
		}
		// Older archives stored a leading directory; keep just the filename.
		target := filepath.Join(home, filepath.Base(name))
		if err := extractFile(f, target); err != nil {
			return restored, err
		}
		restored = append(restored, target)
	}
	return restored, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
