package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"example.com/notepad/internal/selection"
)

var (
	listJSON   bool
	listSearch string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := newClient().List(cmd.Context())
		if err != nil {
			return err
		}
		items = selection.Filter(items, listSearch)

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}
		if len(items) == 0 {
			fmt.Println("No notes found")
			return nil
		}
		now := time.Now()
		for _, n := range items {
			printRow(os.Stdout, n, now, "")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only notes whose title or content contains this text")
}
