package account

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"nasforge/logger"
)

func runCommand(desc string, args ...string) error {
	cmd := exec.Command(args[0], args[1:]...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderrBuf.String())
		logger.Error(desc + " failed: " + err.Error())
		if stderrStr != "" {
			return fmt.Errorf("%s: %s: %w", desc, stderrStr, err)
		}
		return fmt.Errorf("%s: %w", desc, err)
	}
	logger.Debug(desc + " succeeded")
	return nil
}

// GroupExists checks the group database via getent.
func GroupExists(name string) bool {
	return exec.Command("getent", "group", name).Run() == nil
}

// UserExists checks the passwd database via getent.
func UserExists(name string) bool {
	return exec.Command("getent", "passwd", name).Run() == nil
}

// LookupUserHome returns the home field of the passwd entry.
func LookupUserHome(name string) (string, error) {
	out, err := exec.Command("getent", "passwd", name).Output()
	if err != nil {
		return "", fmt.Errorf("getent passwd %s: %w", name, err)
	}
	fields := strings.Split(strings.TrimSpace(string(out)), ":")
	if len(fields) < 6 {
		return "", fmt.Errorf("unexpected passwd entry for %s", name)
	}
	return fields[5], nil
}

// CreateGroup adds a system group with a fixed gid. Existing groups are
// left alone.
func CreateGroup(name string, gid int) error {
	if GroupExists(name) {
		logger.Info("group already exists: " + name)
		return nil
	}
	return runCommand("create group "+name, "groupadd", "-g", strconv.Itoa(gid), name)
}

// buildUseraddArgs assembles the useradd invocation. -M because home
// directories live on datasets that get chowned in a later phase.
func buildUseraddArgs(name string, uid, gid int, home, shell, comment string) []string {
	args := []string{
		"useradd",
		"-u", strconv.Itoa(uid),
		"-g", strconv.Itoa(gid),
		"-d", home,
		"-s", shell,
		"-M",
	}
	if comment != "" {
		args = append(args, "-c", comment)
	}
	return append(args, name)
}

// CreateUser adds a service account. Existing users are left alone.
func CreateUser(name string, uid, gid int, home, shell, comment string) error {
	if UserExists(name) {
		logger.Info("user already exists: " + name)
		return nil
	}
	args := buildUseraddArgs(name, uid, gid, home, shell, comment)
	return runCommand("create user "+name, args...)
}

// SetUserHome repoints an existing account's home directory.
func SetUserHome(name, home string) error {
	return runCommand("set home for "+name, "usermod", "-d", home, name)
}
