package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/rcliao/quotebook/internal/kv"
	"github.com/rcliao/quotebook/internal/logging"
	"github.com/rcliao/quotebook/internal/model"
	"github.com/rcliao/quotebook/internal/store"
	"github.com/rcliao/quotebook/internal/syncer"
)

const shellHelp = `Commands:
  next                      show a random quote from the selected category
  again                     show the last quote again
  add <category> | <text>   add a quote
  filter <category|all>     select a category and show a quote from it
  categories                list categories (* marks the selected one)
  list                      list quotes in the selected category
  export [file]             write every quote to file (default quotes.json)
  import <file>             merge quotes from a JSON file
  sync                      sync with the remote endpoint now
  help                      show this help
  quit                      leave the shell`

func init() {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive quote browser with background sync",
		Run:   runShell,
	}

	cmd.Flags().Bool("no-sync", false, "Disable background sync")

	RootCmd.AddCommand(cmd)
}

func runShell(cmd *cobra.Command, args []string) {
	noSync, _ := cmd.Flags().GetBool("no-sync")

	sessionID := ulid.Make().String()
	ctx := logging.WithSessionID(cmd.Context(), sessionID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := kv.NewMemory()
	st, db, err := openStore(ctx, session)
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	sh := newShell(st, cmd.InOrStdin(), cmd.OutOrStdout())

	sched := syncer.NewScheduler(newSynchronizer(st, sh, nil), syncer.SchedulerOptions{
		Interval:   cfg.Sync.Interval,
		RunOnStart: cfg.Sync.OnStart,
		Logger:     logging.FromContext(ctx),
	})
	sh.sched = sched
	if !noSync {
		if err := sched.Start(ctx); err != nil {
			exitErr("start sync", err)
		}
		defer sched.Stop()
	}

	if err := sh.run(ctx); err != nil {
		exitErr("shell", err)
	}
}

// shell is a line-oriented front end over a QuoteStore. Output is serialized
// because sync notifications arrive from the scheduler goroutine.
type shell struct {
	st    *store.QuoteStore
	sched *syncer.Scheduler
	in    io.Reader

	mu  sync.Mutex
	out io.Writer
}

func newShell(st *store.QuoteStore, in io.Reader, out io.Writer) *shell {
	return &shell{st: st, in: in, out: out}
}

func (sh *shell) printf(format string, a ...any) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fmt.Fprintf(sh.out, format, a...)
}

// QuotesSynced implements syncer.Notifier.
func (sh *shell) QuotesSynced(_ context.Context, added int) {
	sh.printf("Quotes synced with server! (%d new)\n", added)
}

// run reads commands until quit or EOF.
func (sh *shell) run(ctx context.Context) error {
	sh.printf("Showing: %s\n", sh.st.SelectedCategory(ctx))
	sh.next(ctx)

	scanner := bufio.NewScanner(sh.in)
	for {
		sh.printf("> ")
		if !scanner.Scan() {
			sh.printf("\n")
			return scanner.Err()
		}
		if quit := sh.exec(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "":
	case "next", "n":
		sh.next(ctx)
	case "again":
		sh.again(ctx)
	case "add":
		sh.add(ctx, rest)
	case "filter":
		sh.filter(ctx, rest)
	case "categories":
		sh.categories(ctx)
	case "list":
		sh.list(ctx)
	case "export":
		sh.export(rest)
	case "import":
		sh.importFile(ctx, rest)
	case "sync":
		sh.sync(ctx)
	case "help", "?":
		sh.printf("%s\n", shellHelp)
	case "quit", "exit", "q":
		return true
	default:
		sh.printf("unknown command %q, try help\n", name)
	}
	return false
}

func (sh *shell) next(ctx context.Context) {
	q, err := sh.st.Next(ctx)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		sh.printf("error: %v\n", err)
		return
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	printQuote(sh.out, sh.st, q, err)
}

func (sh *shell) again(ctx context.Context) {
	q, err := sh.st.LastViewed(ctx)
	if err != nil {
		sh.printf("Nothing shown yet. Try next.\n")
		return
	}
	sh.printf("%s\n", q)
}

func (sh *shell) add(ctx context.Context, args string) {
	category, text, ok := strings.Cut(args, "|")
	if !ok {
		sh.printf("usage: add <category> | <text>\n")
		return
	}
	q, err := sh.st.Add(ctx, text, category)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("Added %s\n", q)
}

func (sh *shell) filter(ctx context.Context, category string) {
	if category == "" {
		category = model.AllCategories
	}
	if err := sh.st.SelectCategory(ctx, category); err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("Showing: %s\n", category)
	sh.next(ctx)
}

func (sh *shell) categories(ctx context.Context) {
	selected := sh.st.SelectedCategory(ctx)
	cats := append([]string{model.AllCategories}, sh.st.Categories()...)
	for _, c := range cats {
		mark := " "
		if c == selected {
			mark = "*"
		}
		sh.printf("%s %s\n", mark, c)
	}
}

func (sh *shell) list(ctx context.Context) {
	quotes := sh.st.Filter(sh.st.SelectedCategory(ctx))
	if len(quotes) == 0 {
		if sh.st.Len() == 0 {
			sh.printf("%s\n", msgEmpty)
		} else {
			sh.printf("%s\n", msgEmptyCategory)
		}
		return
	}
	for i, q := range quotes {
		sh.printf("%3d. %s\n", i+1, q)
	}
}

func (sh *shell) export(path string) {
	if path == "" {
		path = store.DefaultExportFile
	}
	sh.mu.Lock()
	err := exportTo(sh.out, path, sh.st.Export)
	sh.mu.Unlock()
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("Exported %d quotes to %s\n", sh.st.Len(), path)
}

func (sh *shell) importFile(ctx context.Context, path string) {
	if path == "" {
		sh.printf("usage: import <file>\n")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	defer f.Close()

	before := sh.st.Categories()
	res, err := sh.st.Import(ctx, f)
	if errors.Is(err, store.ErrImportParse) {
		sh.printf("Invalid JSON file.\n")
		return
	}
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("Quotes imported successfully! (%d new)\n", res.Added)
	for _, c := range sh.st.Categories() {
		if !slices.Contains(before, c) {
			sh.printf("New category: %s\n", c)
		}
	}
}

func (sh *shell) sync(ctx context.Context) {
	if sh.sched == nil {
		sh.printf("sync is not configured\n")
		return
	}
	rep := sh.sched.Trigger(ctx)
	switch {
	case rep.Skipped:
		sh.printf("A sync is already running.\n")
	case rep.Err() != nil:
		sh.printf("Sync finished with errors: %v\n", rep.Err())
	case rep.Added == 0:
		sh.printf("Already up to date.\n")
	}
}
