// Package cli wires the router's command groups to the ADT operations:
// credential storage, session construction from flags, the per-command
// handlers, command registration with help texts, and the login/logout
// flows. The MCP server shares the session construction and credential
// loading through the same functions.
package cli

import (
	"encoding/json"
	"errors"
	"os"
)

// CredsFile is the credential store in the working directory.
const CredsFile = ".adt.creds"

// SavedCredentials is the on-disk credential schema.
type SavedCredentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Client   string `json:"client"`
	UseHTTPS bool   `json:"use_https"`
}

// SaveCredentials writes the credential file with owner-only permissions.
func SaveCredentials(creds SavedCredentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(CredsFile, append(data, '\n'), 0o600)
}

// LoadCredentials reads the credential file; a missing or malformed file
// yields (nil, nil) so callers fall back to flags and defaults.
func LoadCredentials() (*SavedCredentials, error) {
	data, err := os.ReadFile(CredsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var creds SavedCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, nil
	}
	if creds.Port == 0 {
		creds.Port = 50000
	}
	if creds.Client == "" {
		creds.Client = "001"
	}
	return &creds, nil
}

// DeleteCredentials removes the credential file.
func DeleteCredentials() error {
	return os.Remove(CredsFile)
}
