package plan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	vault "github.com/sosedoff/ansible-vault-go"
	"gopkg.in/yaml.v3"
)

// Secrets is the plaintext structure stored inside the vault encrypted
// file. Once encrypted the file begins with "$ANSIBLE_VAULT;1.1;AES256";
// this package reads and writes the encrypted form transparently and never
// puts decrypted content on disk.
type Secrets struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// SecretsStore manages the Ansible Vault file holding the middleware
// credentials. PassProvider returns the passphrase on demand (env var or a
// password file with 0600 permissions).
type SecretsStore struct {
	Path         string
	PassProvider func() (string, error)
}

func NewSecretsStore(path string, passProvider func() (string, error)) *SecretsStore {
	return &SecretsStore{Path: path, PassProvider: passProvider}
}

// Setup ensures the vault file exists and decrypts cleanly. A missing file
// is created as an encrypted empty document.
func (s *SecretsStore) Setup() error {
	if s.PassProvider == nil {
		return errors.New("PassProvider is nil")
	}
	if s.Path == "" {
		return errors.New("Path is empty")
	}
	if _, err := os.Stat(s.Path); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		return s.Write(&Secrets{})
	}
	_, err := s.Read()
	return err
}

func (s *SecretsStore) Read() (*Secrets, error) {
	pass, err := s.PassProvider()
	if err != nil {
		return nil, err
	}

	cipherText, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}

	plain, err := vault.Decrypt(string(cipherText), pass)
	if err != nil {
		return nil, fmt.Errorf("vault decrypt: %w", err)
	}

	var sec Secrets
	if err := yaml.Unmarshal([]byte(plain), &sec); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return &sec, nil
}

func (s *SecretsStore) Write(sec *Secrets) error {
	pass, err := s.PassProvider()
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(sec)
	if err != nil {
		return err
	}
	enc, err := vault.Encrypt(string(b), pass)
	if err != nil {
		return fmt.Errorf("vault encrypt: %w", err)
	}
	return writeAtomic(s.Path, []byte(enc), 0o600)
}

// SetAPIKey updates the key in place, keeping whatever host is stored.
func (s *SecretsStore) SetAPIKey(key string) error {
	sec, err := s.Read()
	if err != nil {
		return err
	}
	sec.APIKey = strings.TrimSpace(key)
	return s.Write(sec)
}

// writeAtomic writes to a temp file in the same dir then renames over the
// target, preserving 0600 permissions to avoid world readable secrets.
func writeAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d", base, time.Now().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
