package main

import (
	"context"
	"fmt"
	"strings"

	"tfm.run/clierr"
	"tfm.run/creds"
)

func login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	var (
		issuerID   = fs.String("issuer-id", "", "")
		keyID      = fs.String("key-id", "", "")
		keyPath    = fs.String("private-key-path", "", "")
		skipVerify = fs.Bool("skip-verification", false, "")
		keychain   = fs.Bool("keychain", false, "")
	)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	store := creds.DefaultStore()
	cfg, err := store.LoadConfig()
	if err != nil {
		return err
	}
	issuer, err := loginValue(*issuerID, cfg.IssuerID, "issuer ID", "--issuer-id")
	if err != nil {
		return err
	}
	key, err := loginValue(*keyID, cfg.KeyID, "key ID", "--key-id")
	if err != nil {
		return err
	}
	path, err := loginValue(*keyPath, cfg.PrivateKeyPath, "private key path", "--private-key-path")
	if err != nil {
		return err
	}
	vlogf("login: issuer=%s key=%s path=%s", issuer, key, path)

	c, err := creds.New(issuer, key, path)
	if err != nil {
		return err
	}
	if !*skipVerify {
		ac, err := connect(c)
		if err != nil {
			return err
		}
		if err := ac.Verify(ctx); err != nil {
			return err
		}
		fmt.Println("Verification succeeded.")
	}
	if *keychain {
		if err := c.MoveToKeychain(); err != nil {
			return err
		}
		vlogf("login: private key %s stored in the keychain", c.KeyID)
	}

	saved, err := store.SaveCredentials(c)
	if err != nil {
		return err
	}
	fmt.Printf("Login succeeded. Saved credentials to %s.\n", saved)
	return nil
}

// loginValue returns the flag value if set, or else the configured default.
func loginValue(flagValue, configured, name, flagName string) (string, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	return "", clierr.Invalid("Missing %s. Provide %s or run 'tfm config' to set a default.", name, flagName)
}
