package platform

import (
	"errors"
	"fmt"
)

// ErrNoOSRelease is returned when the distribution could not be identified at all.
var ErrNoOSRelease = errors.New("cannot identify Linux distribution: no os-release information")

// UnsupportedDistroError names a distribution identifier with no supported family.
type UnsupportedDistroError struct {
	ID     string
	Family string
}

func (e *UnsupportedDistroError) Error() string {
	return fmt.Sprintf("unsupported distribution: %s (supported: arch, fedora, debian and derivatives)", e.ID)
}

// UnsupportedOSError is returned on non-Linux hosts.
type UnsupportedOSError struct {
	OS string
}

func (e *UnsupportedOSError) Error() string {
	return fmt.Sprintf("unsupported operating system: %s (only Linux is supported)", e.OS)
}

// Resolve maps detected platform information to a supported Distro.
// The distro ID is matched first; the reported family is the fallback, so
// derivatives that gopsutil already classifies still resolve.
func Resolve(info *Info) (*Distro, error) {
	if info == nil {
		return nil, ErrNoOSRelease
	}
	if !info.IsLinux() {
		return nil, &UnsupportedOSError{OS: info.OS}
	}

	id := normalizePlatform(info.Platform)
	if id == "" {
		return nil, ErrNoOSRelease
	}

	family, ok := supportedIDs[id]
	if !ok {
		family = mapFamily(info.Family)
		if _, supported := familyManagers[family]; !supported {
			return nil, &UnsupportedDistroError{ID: id, Family: info.Family}
		}
	}

	return &Distro{
		ID:             id,
		Family:         family,
		Version:        info.Version,
		PackageManager: familyManagers[family],
	}, nil
}
