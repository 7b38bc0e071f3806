package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetVestigeHome returns the vestige home directory.
// Priority order:
//  1. VESTIGE_HOME environment variable (if set)
//  2. .vestige under the user's home directory
//  3. .vestige under the current working directory (fallback)
//
// The directory is created if it doesn't exist.
func GetVestigeHome() (string, error) {
	if home := os.Getenv("VESTIGE_HOME"); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create vestige home directory: %w", err)
		}
		return home, nil
	}

	base, err := os.UserHomeDir()
	if err != nil {
		base, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}

	vestigeHome := filepath.Join(base, ".vestige")
	if err := os.MkdirAll(vestigeHome, 0755); err != nil {
		return "", fmt.Errorf("create vestige home directory: %w", err)
	}
	return vestigeHome, nil
}

// GetCatalogDBPath returns the absolute path to the evidence catalog
// database: $VESTIGE_HOME/catalog/catalog.db.
func GetCatalogDBPath() (string, error) {
	dir, err := GetCatalogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// GetCatalogDir returns the catalog directory path, creating it if needed.
func GetCatalogDir() (string, error) {
	home, err := GetVestigeHome()
	if err != nil {
		return "", err
	}

	catalogDir := filepath.Join(home, "catalog")
	if err := os.MkdirAll(catalogDir, 0755); err != nil {
		return "", fmt.Errorf("create catalog directory: %w", err)
	}
	return catalogDir, nil
}
