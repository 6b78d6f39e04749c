package main

import (
	"errors"
	"fmt"
	"io"

	"tfm.run/console"
	"tfm.run/creds"
)

func configure(args []string) error {
	if err := parseFlags(newFlagSet("config"), args); err != nil {
		return err
	}
	store := creds.DefaultStore()
	cfg, err := store.LoadConfig()
	if err != nil {
		return err
	}

	con, _ := console.Stdio()
	con.Print("Configure default values used by the login command. Press return to keep the current value.")
	if cfg.IssuerID, err = promptValue(con, "Issuer ID", cfg.IssuerID); err != nil {
		return err
	}
	if cfg.KeyID, err = promptValue(con, "Key ID", cfg.KeyID); err != nil {
		return err
	}
	if cfg.PrivateKeyPath, err = promptKeyPath(con, cfg.PrivateKeyPath); err != nil {
		return err
	}

	path, err := store.SaveConfig(cfg)
	if err != nil {
		return err
	}
	con.Print(fmt.Sprintf("Saved configuration to %s.", path))
	return nil
}

// promptValue asks for label, showing current as the value kept on an
// empty answer or at the end of input.
func promptValue(c console.Console, label, current string) (string, error) {
	s, err := c.Prompt(promptLabel(label, current))
	if errors.Is(err, io.EOF) {
		return current, nil
	}
	if err != nil {
		return "", err
	}
	if s == "" {
		return current, nil
	}
	return s, nil
}

// promptKeyPath is like promptValue but insists on a path to an existing
// file, which it returns expanded.
func promptKeyPath(c console.Console, current string) (string, error) {
	for {
		s, err := c.Prompt(promptLabel("Private key path", current))
		if errors.Is(err, io.EOF) || err == nil && s == "" {
			return current, nil
		}
		if err != nil {
			return "", err
		}
		if p := creds.ExpandPath(s); creds.FileExists(p) {
			return p, nil
		}
		c.Print(fmt.Sprintf("No file found at %s. Please provide a valid path.", s))
	}
}

func promptLabel(label, current string) string {
	if current != "" {
		return label + " [" + current + "]: "
	}
	return label + ": "
}
