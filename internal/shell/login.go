package shell

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
)

// PasswdFile is the user database read for login shells.
const PasswdFile = "/etc/passwd"

// ErrUserNotFound is returned when the passwd database has no entry for a user.
var ErrUserNotFound = errors.New("user not found in passwd database")

// LoginShell returns the shell field of username's entry in passwdPath.
func LoginShell(passwdPath, username string) (string, error) {
	f, err := os.Open(passwdPath)
	if err != nil {
		return "", fmt.Errorf("open passwd: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// name:password:uid:gid:gecos:home:shell
		fields := strings.Split(line, ":")
		if len(fields) != 7 || fields[0] != username {
			continue
		}
		return fields[6], nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read passwd: %w", err)
	}
	return "", fmt.Errorf("%s: %w", username, ErrUserNotFound)
}

// CurrentUsername returns the name of the user running the process.
func CurrentUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("look up current user: %w", err)
	}
	return u.Username, nil
}
