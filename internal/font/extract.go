package font

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxEntrySize caps a single extracted file. Font files are a few MiB.
const maxEntrySize = 256 << 20

// ExtractZip extracts the regular files of a zip archive into destDir.
// Entries that would land outside destDir are rejected.
func ExtractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	root := filepath.Clean(destDir) + string(os.PathSeparator)

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if target == filepath.Clean(destDir) {
			continue
		}

		// Security check: prevent path traversal
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("illegal file path: %s", f.Name)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		case mode.IsRegular():
			if err := extractFile(f, target); err != nil {
				return err
			}
		default:
			// Skip symlinks and special files
			continue
		}
	}

	return nil
}

func extractFile(f *zip.File, target string) error {
	if f.UncompressedSize64 > maxEntrySize {
		return fmt.Errorf("file %s too large (%d bytes)", f.Name, f.UncompressedSize64)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if n > maxEntrySize {
		out.Close()
		return fmt.Errorf("file %s too large", f.Name)
	}
	return out.Close()
}

// isFontFile reports whether name has a TrueType or OpenType extension.
func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}

// findFonts returns every font file below dir.
func findFonts(dir string) ([]string, error) {
	var fonts []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && isFontFile(d.Name()) {
			fonts = append(fonts, path)
		}
		return nil
	})
	return fonts, err
}
