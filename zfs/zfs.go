package zfs

import (
	"bytes"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"nasforge/logger"
)

func runCommand(desc string, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: no command provided", desc)
	}
	cmd := exec.Command(args[0], args[1:]...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderrBuf.String())
		logger.Error(desc + " failed: " + err.Error())
		if stderrStr != "" {
			logger.Error(desc + " stderr: " + stderrStr)
			return fmt.Errorf("%s: %s: %w", desc, stderrStr, err)
		}
		return fmt.Errorf("%s: %w", desc, err)
	}
	logger.Debug(desc + " succeeded")
	return nil
}

// Mountpoint returns where SCALE mounts a dataset by default.
func Mountpoint(name string) string {
	return "/mnt/" + name
}

// DatasetExists checks with zfs list; any error means "no".
func DatasetExists(name string) bool {
	err := exec.Command("zfs", "list", "-H", "-o", "name", name).Run()
	return err == nil
}

// buildCreateArgs assembles the zfs create invocation. Properties are
// sorted so the command line is stable.
func buildCreateArgs(name string, props map[string]string) []string {
	args := []string{"zfs", "create", "-p"}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-o", k+"="+props[k])
	}
	return append(args, name)
}

// CreateDataset creates the dataset (and missing parents) with the given
// properties. Existing datasets are left alone.
func CreateDataset(name string, props map[string]string) error {
	if DatasetExists(name) {
		logger.Info("dataset already exists: " + name)
		return nil
	}
	args := buildCreateArgs(name, props)
	return runCommand("create dataset "+name, args...)
}

// SetProperty runs zfs set on one property.
func SetProperty(name, key, value string) error {
	return runCommand("set "+key+" on "+name, "zfs", "set", key+"="+value, name)
}

// GetProperty reads one effective property value.
func GetProperty(name, key string) (string, error) {
	out, err := exec.Command("zfs", "get", "-H", "-o", "value", key, name).Output()
	if err != nil {
		return "", fmt.Errorf("get %s on %s: %w", key, name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DestroyDataset removes a dataset. Children block the destroy unless
// recursive is set.
func DestroyDataset(name string, recursive bool) error {
	if !DatasetExists(name) {
		return fmt.Errorf("dataset %s does not exist", name)
	}
	args := []string{"zfs", "destroy"}
	if recursive {
		args = append(args, "-r")
	}
	args = append(args, name)
	return runCommand("destroy dataset "+name, args...)
}

// Chown fixes ownership of a mountpoint or home directory.
func Chown(path string, uid, gid int, recursive bool) error {
	args := []string{"chown"}
	if recursive {
		args = append(args, "-R")
	}
	args = append(args, fmt.Sprintf("%d:%d", uid, gid), path)
	return runCommand("chown "+path, args...)
}
