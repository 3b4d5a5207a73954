// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-indexer/internal/vectorstore"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage the vector store collection",
}

var collectionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the collection and its payload indexes if missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := vectorstore.New(pipelineConfig().VectorStore)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureCollection(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Collection %s ready.\n", store.Collection())
		return nil
	},
}

var collectionDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the collection and every point in it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		store, err := vectorstore.New(pipelineConfig().VectorStore)
		if err != nil {
			return err
		}
		defer store.Close()

		if !yes {
			return fmt.Errorf("refusing to drop %s without --yes", store.Collection())
		}
		deleted, err := store.DeleteCollection(cmd.Context())
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Printf("Collection %s does not exist.\n", store.Collection())
			return nil
		}
		fmt.Printf("Dropped %s.\n", store.Collection())
		return nil
	},
}

func init() {
	collectionDropCmd.Flags().Bool("yes", false, "confirm deletion")

	collectionCmd.AddCommand(collectionInitCmd)
	collectionCmd.AddCommand(collectionDropCmd)
	rootCmd.AddCommand(collectionCmd)
}
