package plan

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed returns the built in plan, validated like any other.
func Seed() (*Plan, error) {
	return Parse(seedYAML)
}

// WriteSeed writes the built in plan to path. It refuses to overwrite an
// existing file so a hand edited plan cannot be clobbered by accident.
func WriteSeed(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.New("plan file already exists: " + path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, seedYAML, 0o644)
}
