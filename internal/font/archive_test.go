package font

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// zipBytes builds an in-memory zip archive. Names ending in "/" become directories.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	if err := os.WriteFile(path, zipBytes(t, files), 0o644); err != nil {
		t.Fatalf("failed to write zip: %v", err)
	}
	return path
}

func TestExtractZip(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		want    []string
		wantErr bool
	}{
		{
			name: "flat",
			files: map[string]string{
				"Mono-Regular.ttf": "regular",
				"README.md":        "readme",
			},
			want: []string{"Mono-Regular.ttf", "README.md"},
		},
		{
			name: "nested_directories",
			files: map[string]string{
				"ttf/":              "",
				"ttf/Mono-Bold.ttf": "bold",
				"otf/Mono.otf":      "otf",
			},
			want: []string{"ttf/Mono-Bold.ttf", "otf/Mono.otf"},
		},
		{
			name:    "path_traversal",
			files:   map[string]string{"../evil.ttf": "x"},
			wantErr: true,
		},
		{
			name:    "nested_traversal",
			files:   map[string]string{"fonts/../../evil.ttf": "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := writeZip(t, tt.files)
			dest := filepath.Join(t.TempDir(), "out")

			err := ExtractZip(archive, dest)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractZip() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if _, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "evil.ttf")); statErr == nil {
					t.Error("traversal entry was written outside the destination")
				}
				return
			}
			for _, name := range tt.want {
				got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
				if err != nil {
					t.Errorf("expected %s to be extracted: %v", name, err)
					continue
				}
				if string(got) != tt.files[name] {
					t.Errorf("%s = %q, want %q", name, got, tt.files[name])
				}
			}
		})
	}
}

func TestExtractZip_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ExtractZip(path, t.TempDir()); err == nil {
		t.Error("expected error for a corrupt archive")
	}
}

func TestFindFonts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a/One.ttf", "a/b/Two.OTF", "LICENSE.txt", "a/readme.md"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fonts, err := findFonts(dir)
	if err != nil {
		t.Fatalf("findFonts() error = %v", err)
	}
	if len(fonts) != 2 {
		t.Fatalf("findFonts() = %v, want 2 fonts", fonts)
	}
}

func TestVerifySHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	content := []byte("font archive")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(content)
	good := hex.EncodeToString(sum[:])

	tests := []struct {
		name     string
		expected string
		wantErr  bool
	}{
		{"match", good, false},
		{"uppercase_match", string(bytes.ToUpper([]byte(good))), false},
		{"mismatch", "0000000000000000000000000000000000000000000000000000000000000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySHA256(path, tt.expected)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifySHA256() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var mismatch *ChecksumMismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("error = %T, want *ChecksumMismatchError", err)
				}
				if mismatch.Actual != good {
					t.Errorf("Actual = %s, want %s", mismatch.Actual, good)
				}
			}
		})
	}
}

func TestVerifySHA256_MissingFile(t *testing.T) {
	if err := VerifySHA256(filepath.Join(t.TempDir(), "missing"), "abc"); err == nil {
		t.Error("expected error for missing file")
	}
}
