package platform

import (
	"strings"
)

// familyMap maps distribution names to their canonical family names.
// This is used to normalize variations of family strings from gopsutil.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian, // gopsutil might return ubuntu as family
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// supportedIDs maps os-release IDs to the supported family they install like.
var supportedIDs = map[string]string{
	"arch":        FamilyArch,
	"manjaro":     FamilyArch,
	"endeavouros": FamilyArch,
	"garuda":      FamilyArch,
	"artix":       FamilyArch,
	"fedora":      FamilyFedora,
	"nobara":      FamilyFedora,
	"debian":      FamilyDebian,
	"ubuntu":      FamilyDebian,
	"pop":         FamilyDebian,
	"linuxmint":   FamilyDebian,
	"raspbian":    FamilyDebian,
	"elementary":  FamilyDebian,
	"zorin":       FamilyDebian,
	"kali":        FamilyDebian,
}

// familyManagers maps each supported family to its native package manager.
var familyManagers = map[string]string{
	FamilyArch:   ManagerPacman,
	FamilyFedora: ManagerDNF,
	FamilyDebian: ManagerApt,
}

// normalizeArch converts GOARCH-style values to normalized architecture names.
// Unknown architectures are returned lowercased.
func normalizeArch(arch string) string {
	switch arch {
	case "amd64", "x86_64":
		return "amd64"
	case "arm64", "aarch64":
		return "arm64"
	default:
		return strings.ToLower(arch)
	}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}
