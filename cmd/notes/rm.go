package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Delete a note",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		removed, err := newClient().Delete(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		if !removed {
			return fmt.Errorf("note %d not found", id)
		}
		fmt.Println("Note deleted successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
