package main

import (
	"fmt"
	"io"
	"time"

	"example.com/notepad/internal/notes"
	"example.com/notepad/internal/stringsx"
)

// printRow writes a sidebar entry: id, title, age, then the content preview.
func printRow(w io.Writer, n notes.Note, now time.Time, marker string) {
	fmt.Fprintf(w, "%s%4d  %s  (%s)\n", marker, n.ID, n.Title, stringsx.TimeAgo(now, n.UpdatedAt))
	if p := stringsx.Preview(n.Content); p != "" {
		fmt.Fprintf(w, "       %s\n", p)
	}
}

func printNote(w io.Writer, n notes.Note, now time.Time) {
	fmt.Fprintf(w, "# %s\n\n%s\n\n", n.Title, n.Content)
	fmt.Fprintf(w, "%d words · updated %s\n", stringsx.WordCount(n.Content), stringsx.TimeAgo(now, n.UpdatedAt))
}
