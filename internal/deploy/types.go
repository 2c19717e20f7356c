// Package deploy copies dotfiles into place. Anything already at a
// destination is moved into a per-run backup directory first, mirroring its
// path relative to the home directory so it can be restored by hand.
package deploy

import "fmt"

// BackupPrefix starts every backup directory name.
const BackupPrefix = "terminal-setup-"

// backupTimeFormat gives second resolution, e.g. 20250102-150405.
const backupTimeFormat = "20060102-150405"

// Pair is one resolved deployment: Source is copied to Dest.
type Pair struct {
	Name   string // as written in the manifest, for messages
	Source string // absolute
	Dest   string // absolute
}

// Backup records a displaced destination.
type Backup struct {
	From string
	To   string
}

// Result summarizes a deployment run.
type Result struct {
	Deployed  []string // destinations written (or that would be, on dry-run)
	Skipped   []string // manifest names whose source is missing
	Backups   []Backup
	BackupDir string // empty when nothing was displaced
}

// PairError is a failure to deploy one pair.
type PairError struct {
	Dest    string
	Message string
	Cause   error
}

func (e *PairError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("deploy %s: %s: %v", e.Dest, e.Message, e.Cause)
	}
	return fmt.Sprintf("deploy %s: %s", e.Dest, e.Message)
}

func (e *PairError) Unwrap() error {
	return e.Cause
}
