// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-indexer/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Maintain the on-disk article registry",
}

var registryAddCmd = &cobra.Command{
	Use:   "add <metadata.json>...",
	Short: "File articles from JSON metadata without extracting them",
	Long: `Add reads JSON objects carrying at least arxiv_id, published and
categories, and creates the date directory and lookup links for each. Use it
to seed or repair the registry; no content is fetched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRegistryAdd,
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	reg := registry.New(pipelineConfig().Registry.Root)

	var failed int
	for _, path := range args {
		dir, err := addFromFile(reg, path)
		if err != nil {
			fmt.Printf("failed:  %s (%v)\n", path, err)
			failed++
			continue
		}
		fmt.Printf("filed:   %s\n", dir)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

func addFromFile(reg *registry.Registry, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parsing JSON: %w", err)
	}
	rec, err := registry.RecordFromMap(m)
	if err != nil {
		return "", err
	}
	return reg.File(rec)
}

func init() {
	registryCmd.AddCommand(registryAddCmd)
	rootCmd.AddCommand(registryCmd)
}
