package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/config"
	"github.com/calder/vestige/internal/recovery"
)

// NewRecoveryCommand creates the 'vestige recovery' parent command
func NewRecoveryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Signature-based file recovery commands",
		Long: `Commands for recovering files from directory trees by magic-byte
signature and for reviewing past runs.

Supported types: ` + strings.Join(recovery.KnownTypes(), ", ") + `

Every run gets a UUID and, unless disabled, a row in the evidence catalog
under $VESTIGE_HOME so results stay auditable.`,
	}

	// Add subcommands
	cmd.AddCommand(newRecoveryRunCommand())
	cmd.AddCommand(newHistoryCommand())

	return cmd
}

// catalogDBPath resolves the catalog database location: explicit override
// first, then the config file, then the $VESTIGE_HOME default.
func catalogDBPath(cfg *config.Config, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if cfg != nil && cfg.Catalog.DBPath != "" {
		return cfg.Catalog.DBPath, nil
	}
	return config.GetCatalogDBPath()
}
