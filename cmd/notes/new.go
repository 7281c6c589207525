package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"example.com/notepad/internal/notes"
)

var (
	newTitle   string
	newContent string
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in notes.NewNote
		if cmd.Flags().Changed("title") {
			in.Title = &newTitle
		}
		if cmd.Flags().Changed("content") {
			in.Content = &newContent
		}
		n, err := newClient().Create(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("failed to create new note: %w", err)
		}
		fmt.Printf("Created note %d: %s\n", n.ID, n.Title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Note title")
	newCmd.Flags().StringVarP(&newContent, "content", "c", "", "Note content")
}
