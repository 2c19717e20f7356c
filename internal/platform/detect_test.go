package platform

import (
	"context"
	"runtime"
	"testing"
)

// MockDetector is a test implementation of Detector.
type MockDetector struct {
	info *Info
	err  error
}

// NewMockDetector creates a mock detector with specified return values.
func NewMockDetector(info *Info, err error) Detector {
	return &MockDetector{info: info, err: err}
}

// Detect returns the pre-configured info and error.
func (m *MockDetector) Detect(ctx context.Context) (*Info, error) {
	return m.info, m.err
}

func TestRealDetector_Detect(t *testing.T) {
	info, err := NewDetector().Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %v, want %v", info.OS, runtime.GOOS)
	}
	if info.ArchRaw != runtime.GOARCH {
		t.Errorf("ArchRaw = %v, want %v", info.ArchRaw, runtime.GOARCH)
	}
	if info.Arch == "" {
		t.Error("Arch should not be empty")
	}

	// Platform may be empty (graceful fallback), but Family is always set with it
	if info.Platform != "" && info.Family == "" {
		t.Error("If Platform is set, Family should also be set")
	}

	if runtime.GOOS != "linux" && info.Platform != "" {
		t.Errorf("Platform should be empty on non-Linux, got %v", info.Platform)
	}
}

func TestRealDetector_Cancelled(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("distribution detection only runs on Linux")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// gopsutil may or may not observe the cancellation; either outcome must be consistent.
	info, err := NewDetector().Detect(ctx)
	if err == nil && info == nil {
		t.Error("Detect() returned nil info without error")
	}
}

func TestMockDetector(t *testing.T) {
	expectedInfo := &Info{
		OS:       "linux",
		Arch:     "amd64",
		Platform: "ubuntu",
		Family:   "debian",
		Version:  "22.04",
	}

	info, err := NewMockDetector(expectedInfo, nil).Detect(context.Background())
	if err != nil {
		t.Fatalf("MockDetector.Detect() error = %v", err)
	}
	if info != expectedInfo {
		t.Errorf("MockDetector.Detect() = %+v, want %+v", info, expectedInfo)
	}
}
