package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"example.com/notepad/internal/stringsx"
	"example.com/notepad/internal/workspace"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive notes session with search and auto-save",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		w := workspace.New(newClient(),
			workspace.WithQuiet(cfg.QuietPeriod),
			workspace.WithLogger(log),
			workspace.WithNoticeFunc(func(n workspace.Notice) {
				fmt.Fprintf(os.Stdout, "%s: %s\n", n.Title, n.Message)
			}),
		)
		defer w.Close()

		if err := w.Refresh(ctx); err != nil {
			return err
		}
		go func() {
			if err := w.Watch(ctx); err != nil {
				log.Debugw("change stream closed", "error", err)
			}
		}()
		return runShell(ctx, w, os.Stdin, os.Stdout)
	},
}

const shellHelp = `commands:
  ls                 list notes (current search applies)
  search [text]      filter by title or content; no text clears
  open <id>          open a note
  new                create and open a note
  rm <id>            delete a note
  title <text>       set the open note's title
  type <text>        append a line to the open note
  clear              empty the open note
  show               print the open note
  status             print the save status
  quit`

func runShell(ctx context.Context, w *workspace.Workspace, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for sc.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		switch cmd = stringsx.Normalize(cmd); cmd {
		case "":
		case "ls", "list":
			if err := w.Refresh(ctx); err != nil {
				fmt.Fprintln(out, "error:", err)
				break
			}
			printList(out, w)
		case "search":
			w.Search(arg)
			printList(out, w)
		case "open":
			id, err := parseID(arg)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				break
			}
			w.Open(id)
			if _, ok := w.Current(); !ok {
				fmt.Fprintln(out, "No note selected")
			}
		case "new":
			if n, err := w.New(ctx); err == nil {
				fmt.Fprintf(out, "Opened note %d\n", n.ID)
			}
		case "rm", "delete":
			id, err := parseID(arg)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				break
			}
			_ = w.Delete(ctx, id)
		case "title":
			if requireOpen(out, w) {
				w.TypeTitle(arg)
			}
		case "type":
			if requireOpen(out, w) {
				_, content := w.Draft()
				if content != "" {
					content += "\n"
				}
				w.TypeContent(content + arg)
			}
		case "clear":
			if requireOpen(out, w) {
				w.TypeContent("")
			}
		case "show":
			if requireOpen(out, w) {
				title, content := w.Draft()
				fmt.Fprintf(out, "# %s\n\n%s\n\n%d words · %s\n", title, content, stringsx.WordCount(content), w.Status())
			}
		case "status":
			fmt.Fprintln(out, w.Status())
		case "help":
			fmt.Fprintln(out, shellHelp)
		case "quit", "exit":
			w.Flush()
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q, try help\n", cmd)
		}
		fmt.Fprint(out, "> ")
	}
	w.Flush()
	return sc.Err()
}

func printList(out io.Writer, w *workspace.Workspace) {
	items := w.Visible()
	if len(items) == 0 {
		fmt.Fprintln(out, "No notes found")
		return
	}
	cur, ok := w.Current()
	now := time.Now()
	for _, n := range items {
		marker := " "
		if ok && n.ID == cur.ID {
			marker = "*"
		}
		printRow(out, n, now, marker)
	}
}

func requireOpen(out io.Writer, w *workspace.Workspace) bool {
	if _, ok := w.Current(); !ok {
		fmt.Fprintln(out, "No note selected")
		return false
	}
	return true
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
