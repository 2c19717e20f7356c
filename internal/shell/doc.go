// Package shell inspects and changes the operator's login shell.
//
// The login shell is read from the passwd entry of the current user, with
// $SHELL as a fallback. Setter compares it against the target shell binary,
// resolving symlinks so /bin/zsh and /usr/bin/zsh on a merged-/usr system
// count as equal, and runs chsh only after the operator confirms.
//
// DetectShell identifies the shell of the running session ($SHELL first,
// then the parent process), which the installer uses to tell the operator
// whether a new session is needed after the run.
package shell
