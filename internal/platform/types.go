// Package platform detects the host OS and Linux distribution and maps it to
// one of the distribution families terminal-setup supports.
//
// Detection uses gopsutil, which reads /etc/os-release (honouring HOST_ETC).
// Resolution to a family and native package manager is a pure lookup so the
// rest of the installer can be driven from a fixed identifier in tests.
package platform

import "context"

// Linux distribution family constants.
// Only arch, fedora and debian are supported; the others exist so that
// family strings reported by gopsutil normalize to a stable value.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint, Pop!_OS
	FamilyFedora  = "fedora"  // Fedora, Nobara
	FamilyArch    = "arch"    // Arch Linux, Manjaro, EndeavourOS
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux (unsupported)
	FamilySUSE    = "suse"    // openSUSE, SLES (unsupported)
	FamilyAlpine  = "alpine"  // Alpine Linux (unsupported)
	FamilyGentoo  = "gentoo"  // Gentoo (unsupported)
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Native package manager names.
const (
	ManagerPacman = "pacman"
	ManagerDNF    = "dnf"
	ManagerApt    = "apt"
)

// Info contains raw platform detection information.
type Info struct {
	OS       string // "linux", "darwin", ...
	Arch     string // normalized: "amd64", "arm64", or the raw value
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g. "ubuntu", "arch")
	Family   string // canonical family as reported by the OS (may be "unknown")
	Version  string // distro version (Linux only)
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// Distro is a supported distribution, resolved once per run.
type Distro struct {
	ID             string // distro ID (e.g. "manjaro")
	Family         string // FamilyArch, FamilyFedora or FamilyDebian
	Version        string
	PackageManager string // ManagerPacman, ManagerDNF or ManagerApt
}

// IsArch returns true for Arch-family distributions.
func (d *Distro) IsArch() bool {
	return d.Family == FamilyArch
}

// IsFedora returns true for Fedora-family distributions.
func (d *Distro) IsFedora() bool {
	return d.Family == FamilyFedora
}

// IsDebian returns true for Debian-family distributions.
func (d *Distro) IsDebian() bool {
	return d.Family == FamilyDebian
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
