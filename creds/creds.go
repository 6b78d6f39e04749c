// Package creds loads and saves App Store Connect API credentials and the
// defaults used by the login command.
package creds

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/zalando/go-keyring"
	"kr.dev/errorfmt"
	"tailscale.com/atomicfile"
	"tfm.run/clierr"
	"tfm.run/envknobs"
)

// KeyringService is the OS keychain service under which private keys are
// stored, keyed by API key ID.
const KeyringService = "testflight-mgmt"

// Credentials identify an App Store Connect API key.
type Credentials struct {
	IssuerID       string `json:"issuerID"`
	KeyID          string `json:"keyID"`
	Keychain       bool   `json:"keychain,omitempty"` // private key is held in the OS keychain
	PrivateKeyPath string `json:"privateKeyPath"`
}

// New validates and normalizes the given values. Surrounding whitespace is
// trimmed and a leading "~" in privateKeyPath is expanded. The private key
// file must exist.
func New(issuerID, keyID, privateKeyPath string) (*Credentials, error) {
	issuerID = strings.TrimSpace(issuerID)
	keyID = strings.TrimSpace(keyID)
	if issuerID == "" {
		return nil, clierr.Invalid("The issuer ID cannot be empty.")
	}
	if keyID == "" {
		return nil, clierr.Invalid("The key ID cannot be empty.")
	}
	path := ExpandPath(strings.TrimSpace(privateKeyPath))
	if !FileExists(path) {
		return nil, clierr.New(clierr.PrivateKeyNotFound, "Private key not found at path: %s", privateKeyPath)
	}
	return &Credentials{
		IssuerID:       issuerID,
		KeyID:          keyID,
		PrivateKeyPath: path,
	}, nil
}

// PrivateKey returns the PEM encoded private key, reading it from the OS
// keychain if c.Keychain is set, or from c.PrivateKeyPath otherwise.
func (c *Credentials) PrivateKey() (_ []byte, err error) {
	if c.Keychain {
		defer errorfmt.Handlef("keychain: %s: %w", c.KeyID, &err)
		s, err := keyring.Get(KeyringService, c.KeyID)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	data, err := os.ReadFile(c.PrivateKeyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, clierr.New(clierr.PrivateKeyNotFound, "Private key not found at path: %s", c.PrivateKeyPath)
	}
	return data, err
}

// MoveToKeychain copies the private key at c.PrivateKeyPath into the OS
// keychain and marks c to read it from there.
func (c *Credentials) MoveToKeychain() (err error) {
	defer errorfmt.Handlef("keychain: %s: %w", c.KeyID, &err)
	data, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return err
	}
	if err := keyring.Set(KeyringService, c.KeyID, string(data)); err != nil {
		return err
	}
	c.Keychain = true
	return nil
}

// Config holds defaults for the login command. Empty fields are unset.
type Config struct {
	IssuerID       string `json:"issuerID,omitempty"`
	KeyID          string `json:"keyID,omitempty"`
	PrivateKeyPath string `json:"privateKeyPath,omitempty"`
}

// Store reads and writes credentials.json and config.json in Dir.
type Store struct {
	Dir string
}

// DefaultStore returns a Store rooted at envknobs.ConfigDir.
func DefaultStore() *Store {
	return &Store{Dir: envknobs.ConfigDir()}
}

func (s *Store) CredentialsPath() string { return filepath.Join(s.Dir, "credentials.json") }
func (s *Store) ConfigPath() string      { return filepath.Join(s.Dir, "config.json") }

// LoadCredentials returns the saved credentials, or nil if none were saved.
func (s *Store) LoadCredentials() (*Credentials, error) {
	var c *Credentials
	ok, err := readJSON(s.CredentialsPath(), &c)
	if !ok || err != nil {
		return nil, err
	}
	return c, nil
}

// SaveCredentials replaces the saved credentials with c and returns the path
// written.
func (s *Store) SaveCredentials(c *Credentials) (string, error) {
	return s.CredentialsPath(), writeJSON(s.CredentialsPath(), c)
}

// LoadConfig returns the saved login defaults, or an empty Config if none were
// saved. The file may contain comments and trailing commas.
func (s *Store) LoadConfig() (*Config, error) {
	c := new(Config)
	if _, err := readJSON(s.ConfigPath(), c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) SaveConfig(c *Config) (string, error) {
	return s.ConfigPath(), writeJSON(s.ConfigPath(), c)
}

// readJSON decodes the HuJSON file at name into v. It reports false if the
// file does not exist.
func readJSON(name string, v any) (ok bool, err error) {
	defer errorfmt.Handlef("creds: %s: %w", name, &err)
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	data, err = hujson.Standardize(data)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

// writeJSON atomically replaces name with v encoded as indented JSON with
// object keys sorted.
func writeJSON(name string, v any) (err error) {
	defer errorfmt.Handlef("creds: %s: %w", name, &err)
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var sorted map[string]any // encoding/json sorts map keys
	if err := json.Unmarshal(data, &sorted); err != nil {
		return err
	}
	data, err = json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o700); err != nil {
		return err
	}
	return atomicfile.WriteFile(name, append(data, '\n'), 0o600)
}

// ExpandPath replaces a leading "~" in p with the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// FileExists reports whether p names an existing regular file.
func FileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}
