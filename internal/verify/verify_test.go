package verify

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/config"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/runner"
	"github.com/ZebulonRouseFrantzich/terminal-setup/internal/testutil"
)

func tools(names ...string) []config.Tool {
	out := make([]config.Tool, len(names))
	for i, n := range names {
		out[i] = config.Tool{Name: n, Binaries: []string{n}}
	}
	return out
}

func TestCheck(t *testing.T) {
	r := testutil.NewFakeRunner("nvim", "fdfind", "tmux", "quiet")
	r.Handler = func(cmd runner.Command) ([]byte, error) {
		switch filepath.Base(cmd.Name) {
		case "nvim":
			return []byte("NVIM v0.10.2\nBuild type: Release\n"), nil
		case "fdfind":
			return []byte("\n\nfdfind 9.0.0\n"), nil
		case "tmux":
			return nil, testutil.Failed(cmd, 1)
		}
		return []byte("   \n"), nil
	}

	list := append(tools("nvim", "zoxide", "tmux", "quiet"), config.Tool{Name: "fd", Binaries: []string{"fd", "fdfind"}})
	report := NewReporter(r, nil).Check(context.Background(), list)

	want := map[string]ToolVersion{
		"nvim":  {Name: "nvim", Binary: "nvim", Path: "/usr/bin/nvim", Version: "NVIM v0.10.2"},
		"tmux":  {Name: "tmux", Binary: "tmux", Path: "/usr/bin/tmux", Version: UnknownVersion},
		"quiet": {Name: "quiet", Binary: "quiet", Path: "/usr/bin/quiet", Version: UnknownVersion},
		"fd":    {Name: "fd", Binary: "fdfind", Path: "/usr/bin/fdfind", Version: "fdfind 9.0.0"},
	}
	if len(report.Found) != len(want) {
		t.Fatalf("Found = %+v, want %d tools", report.Found, len(want))
	}
	for _, got := range report.Found {
		if got != want[got.Name] {
			t.Errorf("Found[%s] = %+v, want %+v", got.Name, got, want[got.Name])
		}
	}
	if len(report.Missing) != 1 || report.Missing[0] != "zoxide" {
		t.Errorf("Missing = %v, want [zoxide]", report.Missing)
	}
	if got := r.CallsTo("/usr/bin/nvim"); len(got) != 1 || got[0] != "/usr/bin/nvim --version" {
		t.Errorf("nvim calls = %v", got)
	}
}

func TestCheck_Empty(t *testing.T) {
	report := NewReporter(testutil.NewFakeRunner(), nil).Check(context.Background(), nil)
	if len(report.Found) != 0 || len(report.Missing) != 0 {
		t.Errorf("Check(nil) = %+v, want empty report", report)
	}
}

func TestCheck_RealBinaries(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\necho \"mytool 1.2.3\"\necho extra\n"
	if err := os.WriteFile(filepath.Join(dir, "mytool"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	report := NewReporter(runner.NewExec(nil), nil).Check(context.Background(), tools("mytool", "nonexistent"))
	if len(report.Found) != 1 || report.Found[0].Version != "mytool 1.2.3" {
		t.Errorf("Found = %+v", report.Found)
	}
	if len(report.Missing) != 1 {
		t.Errorf("Missing = %v", report.Missing)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"git version 2.45.0\n", "git version 2.45.0"},
		{"\n  \n  zsh 5.9 (x86_64-pc-linux-gnu)\n", "zsh 5.9 (x86_64-pc-linux-gnu)"},
		{"", ""},
		{"\n\n", ""},
	}
	for _, tt := range tests {
		if got := FirstLine([]byte(tt.in)); got != tt.want {
			t.Errorf("FirstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, &Report{
		Found:   []ToolVersion{{Name: "fd", Binary: "fdfind", Version: "fdfind 9.0.0"}},
		Missing: []string{"zoxide", "eza"},
	})
	out := buf.String()
	for _, want := range []string{"Verification", "fd (fdfind)", "fdfind 9.0.0", "zoxide", "2 of 3 tools missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	Print(&buf, &Report{Found: []ToolVersion{{Name: "git", Binary: "git", Version: "git 2"}}})
	if !strings.Contains(buf.String(), "All 1 tools found") {
		t.Errorf("output = %s", buf.String())
	}
}
