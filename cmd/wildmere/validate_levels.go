// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wildmere/wildmere/internal/world"
)

// NewValidateLevelsCmd creates the validate-levels subcommand.
func NewValidateLevelsCmd() *cobra.Command {
	var levelsDir string

	cmd := &cobra.Command{
		Use:   "validate-levels",
		Short: "Validate all level bundles without starting the server",
		Long: `Validates every level bundle JSON file against the bundle schema.
Does NOT start the server or require a database connection.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch malformed level content early:
  wildmere validate-levels --levels-dir ./levels`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runValidateLevels(levelsDir)
		},
	}

	cmd.Flags().StringVar(&levelsDir, "levels-dir", defaultLevelsDir, "directory containing level bundle JSON files")

	return cmd
}

func runValidateLevels(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to scan levels directory: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no level bundles found in %s", dir)
	}

	var errors []string
	for _, path := range paths {
		data, err := os.ReadFile(path) //nolint:gosec // paths come from the operator's own levels dir
		if err != nil {
			errors = append(errors, fmt.Sprintf("  %s: %v", filepath.Base(path), err))
			continue
		}
		if err := world.ValidateBundle(data); err != nil {
			errors = append(errors, fmt.Sprintf("  %s: %v", filepath.Base(path), err))
		}
	}

	if len(errors) > 0 {
		for _, e := range errors {
			slog.Error("bundle validation failed", "detail", e)
		}
		return fmt.Errorf("validation failed: %d of %d level bundles invalid", len(errors), len(paths))
	}

	slog.Info("all level bundles valid", "count", len(paths))
	return nil
}
