package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"example.com/notepad/internal/autosave"
	"example.com/notepad/internal/notes"
	"example.com/notepad/internal/stringsx"
)

var (
	editTitle   string
	editReplace bool
)

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a note from standard input with auto-save",
	Long: `edit appends each line read from standard input to the note's content
(or replaces it with --replace). Changes are saved once input has been idle for
the quiet period, and once more when input ends.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c := newClient()
		n, err := c.Get(cmd.Context(), id)
		if err != nil {
			return err
		}

		var title *string
		if cmd.Flags().Changed("title") {
			title = &editTitle
		}
		ed := editor{up: c, quiet: cfg.QuietPeriod, replace: editReplace, status: os.Stderr}
		saved, status := ed.run(n, title, os.Stdin)
		if status == autosave.Error {
			return errors.New("last save failed")
		}
		fmt.Printf("Saved note %d (%d words)\n", saved.ID, stringsx.WordCount(saved.Content))
		return nil
	},
}

type editor struct {
	up      autosave.Updater
	quiet   time.Duration
	replace bool
	status  io.Writer
}

// run feeds lines from in to an auto-save controller loaded with n and
// returns the stored note and the final save status.
func (e editor) run(n notes.Note, title *string, in io.Reader) (notes.Note, autosave.Status) {
	ctl := autosave.New(e.up, e.quiet,
		autosave.WithLogger(log),
		autosave.WithStatusFunc(func(s autosave.Status) {
			fmt.Fprintf(e.status, "[%s]\n", s)
		}),
	)
	defer ctl.Close()
	ctl.Load(&n)

	if title != nil {
		ctl.SetTitle(*title)
	}

	content := n.Content
	if e.replace {
		content = ""
		ctl.SetContent(content)
	}
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if content != "" {
			content += "\n"
		}
		content += sc.Text()
		ctl.SetContent(content)
	}

	ctl.Flush()
	saved, _ := ctl.Note()
	return saved, ctl.Status()
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "Set the note title")
	editCmd.Flags().BoolVar(&editReplace, "replace", false, "Replace the content instead of appending")
}
