// Package archive bundles the HTML reports of a run into one zip file.
package archive

import (
	"archive/zip"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/zapreport/internal/model"
)

// namePrefix and nameLayout form the archive file name, e.g. zap_scan_reports_20240501.zip.
const (
	namePrefix = "zap_scan_reports_"
	nameLayout = "20060102"
)

// Name returns the archive file name for the given run date.
func Name(date time.Time) string {
	return namePrefix + date.Format(nameLayout) + ".zip"
}

// Create writes every .html file under root into root/Name(date).
// Entry names are slash-separated paths relative to root, added in lexical
// walk order. An existing archive with the same name is replaced.
func Create(root string, date time.Time) (*model.ArchiveInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	files, err := collect(absRoot)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(absRoot, Name(date))
	tmp := path + ".tmp"

	if err := write(tmp, absRoot, files); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("failed to move archive into place: %w", err)
	}

	size, digest, err := Digest(path)
	if err != nil {
		return nil, err
	}

	return &model.ArchiveInfo{
		Path:    path,
		Entries: files,
		Size:    size,
		SHA3:    digest,
	}, nil
}

// Digest returns the size and hex SHA3-256 digest of the file at path.
func Digest(path string) (int64, string, error) {
	f, err := os.Open(path) //nolint:gosec // path is produced by Create or given by the user
	if err != nil {
		return 0, "", err
	}
	defer f.Close() //nolint:errcheck // read-only

	h := sha3.New256()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("failed to hash archive: %w", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// Inspect describes an existing archive: its HTML entries, size and digest.
func Inspect(path string) (*model.ArchiveInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close() //nolint:errcheck // read-only

	entries := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() && IsReport(f.Name) {
			entries = append(entries, f.Name)
		}
	}

	size, digest, err := Digest(absPath)
	if err != nil {
		return nil, err
	}

	return &model.ArchiveInfo{
		Path:    absPath,
		Entries: entries,
		Size:    size,
		SHA3:    digest,
	}, nil
}

// IsReport reports whether name is an HTML report file name.
func IsReport(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".html")
}

// collect returns the relative slash paths of the HTML reports under root.
func collect(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !IsReport(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}

func write(path, root string, files []string) (err error) {
	out, err := os.Create(path) //nolint:gosec // path is inside the work directory
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(out)
	for _, name := range files {
		if err := addFile(zw, root, name); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, root, name string) error {
	src := filepath.Join(root, filepath.FromSlash(name))
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}

	f, err := os.Open(src) //nolint:gosec // walked from the work directory
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // read-only

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}
