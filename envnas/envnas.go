package envnas

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	Mode          string
	TrueNASHost   string
	TrueNASAPIKey string
	APITimeout    int
	VaultPass     string
	VaultPassFile string
	VaultFile     string
	DBPath        string
)

// Setup loads .env and resolves every variable the tool cares about.
// TRUENAS_HOST is required in api mode but callers decide when to enforce
// that, so only format level validation happens here.
func Setup() error {
	godotenv.Load(".env")

	Mode = os.Getenv("MODE")
	if Mode != "dev" {
		Mode = "prod" //default prod
	}

	TrueNASHost = strings.TrimSpace(os.Getenv("TRUENAS_HOST"))
	TrueNASAPIKey = strings.TrimSpace(os.Getenv("TRUENAS_API_KEY"))

	// Parse API_TIMEOUT; default to 20 seconds on parse error or when unset
	if s := os.Getenv("API_TIMEOUT"); s == "" {
		APITimeout = 20
	} else {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			APITimeout = 20
		} else {
			APITimeout = n
		}
	}

	VaultPass = strings.TrimSpace(os.Getenv("VAULT_PASS"))
	VaultPassFile = strings.TrimSpace(os.Getenv("VAULT_PASS_FILE"))
	VaultFile = strings.TrimSpace(os.Getenv("NASFORGE_VAULT"))
	if VaultFile == "" {
		VaultFile = "secrets.vault.yml"
	}

	DBPath = strings.TrimSpace(os.Getenv("NASFORGE_DB"))
	if DBPath == "" {
		DBPath = "nasforge.db"
	}

	return nil
}

// RequireHost enforces the variables that api mode cannot live without.
func RequireHost() error {
	if TrueNASHost == "" {
		return fmt.Errorf("TRUENAS_HOST must be set")
	}
	return nil
}

// VaultPassphrase resolves the Ansible Vault passphrase, preferring a
// password file with 0600 permissions over the bare env var.
func VaultPassphrase() (string, error) {
	if VaultPassFile != "" {
		b, err := os.ReadFile(VaultPassFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	if VaultPass != "" {
		return VaultPass, nil
	}
	return "", fmt.Errorf("set VAULT_PASS or VAULT_PASS_FILE for the vault passphrase")
}
