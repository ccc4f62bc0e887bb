package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/five82/sift/internal/meili"
	"github.com/five82/sift/internal/poller"
	"github.com/five82/sift/internal/prefs"
	"github.com/five82/sift/internal/ui"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"version", "version", "show server version", runVersion},
	{"health", "health", "check server health", runHealth},
	{"tasks", "tasks [-index uid] [-status s,...] [-limit n]", "list tasks", runTasks},
	{"task", "task <uid>", "show one task", runTask},
	{"wait", "wait [-unlimited] [-attempts n] [-watch] <uid>...", "wait for tasks to finish", runWait},
	{"indexes", "indexes", "list indexes", runIndexes},
	{"create-index", "create-index [-wait] <uid> [primaryKey]", "create an index", runCreateIndex},
	{"delete-index", "delete-index [-wait] [uid]", "delete an index", runDeleteIndex},
	{"add-documents", "add-documents [-wait] [-update] [-primary-key k] [index] <file.json>", "add or update documents", runAddDocuments},
	{"search", "search [-limit n] [index] <query>", "search an index", runSearch},
	{"dump", "dump", "start a dump", runDump},
	{"dump-status", "dump-status <uid>", "show dump status", runDumpStatus},
	{"use", "use [index]", "show or set the default index", runUse},
	{"theme", "theme [name]", "show or set the watch theme", runTheme},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// Usage writes the command summary to w.
func Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: sift [-config path] [-prefs path] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-72s %s\n", c.usage, c.summary)
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// withDefaultIndex prepends the saved default index when args is one short
// of want.
func withDefaultIndex(e *env, args []string, want int) ([]string, error) {
	if len(args) == want-1 && e.prefs.DefaultIndex != "" {
		args = append([]string{e.prefs.DefaultIndex}, args...)
	}
	if len(args) != want {
		return nil, usageError("expected %d argument(s), got %d", want, len(args))
	}
	return args, nil
}

func parseUID(raw string) (int64, error) {
	uid, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || uid < 0 {
		return 0, usageError("invalid task uid %q", raw)
	}
	return uid, nil
}

func runVersion(ctx context.Context, e *env, _ []string) error {
	v, err := e.client.Version(ctx)
	if err != nil {
		return fmt.Errorf("fetch version: %w", err)
	}
	fmt.Fprintf(e.stdout, "meilisearch %s (commit %s, %s)\n", v.PkgVersion, shortSHA(v.CommitSHA), v.CommitDate)
	return nil
}

func runHealth(ctx context.Context, e *env, _ []string) error {
	h, err := e.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("check health: %w", err)
	}
	fmt.Fprintln(e.stdout, h.Status)
	return nil
}

func runTasks(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("tasks", e.stderr)
	index := fs.String("index", "", "only tasks of this index")
	statuses := fs.String("status", "", "comma-separated statuses")
	limit := fs.Int("limit", 20, "maximum tasks to list")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	query := meili.TasksQuery{Limit: *limit}
	if *index != "" {
		query.IndexUIDs = []string{*index}
	}
	for _, raw := range strings.Split(*statuses, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		status := meili.TaskStatus(raw)
		if !status.Valid() {
			return usageError("unknown task status %q", raw)
		}
		query.Statuses = append(query.Statuses, status)
	}

	list, err := e.client.Tasks(ctx, query)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	rows := make([][]string, 0, len(list.Results))
	for _, t := range list.Results {
		rows = append(rows, []string{
			strconv.FormatInt(t.UID, 10),
			string(t.Status),
			t.Type,
			t.IndexUID,
			formatTime(t.EnqueuedAt),
		})
	}
	renderTable(e.stdout, []string{"UID", "STATUS", "TYPE", "INDEX", "ENQUEUED"}, rows)
	return nil
}

func runTask(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError("task takes exactly one uid")
	}
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}
	task, err := e.client.Task(ctx, uid)
	if err != nil {
		return fmt.Errorf("fetch task %d: %w", uid, err)
	}
	return printJSON(e.stdout, task)
}

func runWait(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("wait", e.stderr)
	unlimited := fs.Bool("unlimited", false, "poll until the task finishes")
	attempts := fs.Int("attempts", 0, "override the configured attempt budget")
	watch := fs.Bool("watch", false, "show live progress")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageError("wait needs at least one task uid")
	}
	if *unlimited && *attempts > 0 {
		return usageError("-unlimited and -attempts are mutually exclusive")
	}

	var opts []poller.AwaitOption
	switch {
	case *unlimited:
		opts = append(opts, poller.Unlimited())
	case *attempts > 0:
		opts = append(opts, poller.Attempts(*attempts))
	}

	var pending []meili.Task
	var failures []error
	for _, raw := range fs.Args() {
		uid, err := parseUID(raw)
		if err != nil {
			return err
		}
		task, err := e.client.Task(ctx, uid)
		if err != nil {
			return fmt.Errorf("fetch task %d: %w", uid, err)
		}
		switch task.Status {
		case meili.TaskSucceeded:
			printOutcome(e.stdout, task)
		case meili.TaskFailed:
			failures = append(failures, &meili.TaskFailedError{Task: task, Err: task.Error})
		default:
			pending = append(pending, task)
		}
	}

	if len(pending) > 0 {
		var err error
		if *watch {
			err = watchTasks(ctx, e, pending, opts...)
		} else {
			err = awaitTasks(ctx, e, pending, opts...)
		}
		if err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

func runIndexes(ctx context.Context, e *env, _ []string) error {
	indexes, err := e.client.Indexes(ctx)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	rows := make([][]string, 0, len(indexes))
	for _, idx := range indexes {
		name := idx.UID
		if idx.UID == e.prefs.DefaultIndex {
			name += " *"
		}
		rows = append(rows, []string{name, idx.PrimaryKey, formatTime(idx.UpdatedAt)})
	}
	renderTable(e.stdout, []string{"UID", "PRIMARY KEY", "UPDATED"}, rows)
	return nil
}

func runCreateIndex(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("create-index", e.stderr)
	wait := fs.Bool("wait", false, "wait for the task to finish")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return usageError("create-index takes a uid and an optional primary key")
	}
	task, err := e.client.CreateIndex(ctx, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return fmt.Errorf("create index %s: %w", fs.Arg(0), err)
	}
	return reportTask(ctx, e, task, *wait)
}

func runDeleteIndex(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("delete-index", e.stderr)
	wait := fs.Bool("wait", false, "wait for the task to finish")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	rest, err := withDefaultIndex(e, fs.Args(), 1)
	if err != nil {
		return err
	}
	task, err := e.client.DeleteIndex(ctx, rest[0])
	if err != nil {
		return fmt.Errorf("delete index %s: %w", rest[0], err)
	}
	return reportTask(ctx, e, task, *wait)
}

func runAddDocuments(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("add-documents", e.stderr)
	wait := fs.Bool("wait", false, "wait for the task to finish")
	update := fs.Bool("update", false, "merge into existing documents instead of replacing them")
	primaryKey := fs.String("primary-key", "", "primary key for a new index")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	rest, err := withDefaultIndex(e, fs.Args(), 2)
	if err != nil {
		return err
	}
	index, path := rest[0], rest[1]

	docs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}
	if !json.Valid(docs) {
		return fmt.Errorf("read documents: %s is not valid JSON", path)
	}

	var task meili.Task
	if *update {
		task, err = e.client.AddOrUpdateDocuments(ctx, index, json.RawMessage(docs), *primaryKey)
	} else {
		task, err = e.client.AddOrReplaceDocuments(ctx, index, json.RawMessage(docs), *primaryKey)
	}
	if err != nil {
		return fmt.Errorf("add documents to %s: %w", index, err)
	}
	return reportTask(ctx, e, task, *wait)
}

func runSearch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("search", e.stderr)
	limit := fs.Int("limit", 20, "maximum hits")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	rest, err := withDefaultIndex(e, fs.Args(), 2)
	if err != nil {
		return err
	}

	res, err := meili.Search[json.RawMessage](ctx, e.client, rest[0], meili.SearchRequest{
		Query: rest[1],
		Limit: *limit,
	})
	if err != nil {
		return fmt.Errorf("search %s: %w", rest[0], err)
	}
	for _, hit := range res.Hits {
		fmt.Fprintln(e.stdout, string(hit))
	}
	fmt.Fprintf(e.stderr, "%d of ~%d hits in %dms\n", len(res.Hits), res.EstimatedTotalHits, res.ProcessingTimeMS)
	return nil
}

func runDump(ctx context.Context, e *env, _ []string) error {
	dump, err := e.client.CreateDump(ctx)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}
	fmt.Fprintf(e.stdout, "dump %s %s\n", dump.UID, dump.Status)
	return nil
}

func runDumpStatus(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError("dump-status takes exactly one dump uid")
	}
	dump, err := e.client.DumpStatus(ctx, args[0])
	if err != nil {
		return fmt.Errorf("fetch dump %s: %w", args[0], err)
	}
	fmt.Fprintf(e.stdout, "dump %s %s\n", dump.UID, dump.Status)
	return nil
}

func runUse(ctx context.Context, e *env, args []string) error {
	switch len(args) {
	case 0:
		if e.prefs.DefaultIndex == "" {
			fmt.Fprintln(e.stdout, "no default index")
		} else {
			fmt.Fprintln(e.stdout, e.prefs.DefaultIndex)
		}
		return nil
	case 1:
	default:
		return usageError("use takes at most one index uid")
	}

	index := strings.TrimSpace(args[0])
	idx, err := e.client.Index(ctx, index)
	if err != nil {
		return fmt.Errorf("look up index %s: %w", index, err)
	}
	if idx == nil {
		e.logger.Sugar().Warnf("index %s does not exist yet", index)
	}

	saved, err := prefs.Update(e.prefsPath, func(p *prefs.Prefs) { p.DefaultIndex = index })
	if err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	e.prefs = saved
	fmt.Fprintf(e.stdout, "default index: %s\n", saved.DefaultIndex)
	return nil
}

func runTheme(_ context.Context, e *env, args []string) error {
	switch len(args) {
	case 0:
		for _, name := range ui.ThemeNames() {
			marker := " "
			if name == e.prefs.Theme {
				marker = "*"
			}
			fmt.Fprintf(e.stdout, "%s %s\n", marker, name)
		}
		return nil
	case 1:
	default:
		return usageError("theme takes at most one name")
	}

	name, ok := ui.LookupTheme(args[0])
	if !ok {
		return usageError("unknown theme %q (available: %s)", args[0], strings.Join(ui.ThemeNames(), ", "))
	}
	saved, err := prefs.Update(e.prefsPath, func(p *prefs.Prefs) { p.Theme = name })
	if err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	e.prefs = saved
	fmt.Fprintf(e.stdout, "theme: %s\n", saved.Theme)
	return nil
}

// reportTask prints an enqueued task, or waits for it when wait is set.
func reportTask(ctx context.Context, e *env, task meili.Task, wait bool) error {
	if !wait {
		fmt.Fprintf(e.stdout, "task %d enqueued\n", task.UID)
		return nil
	}
	done, err := awaitEnqueued(ctx, e, task)
	if err != nil {
		return err
	}
	printOutcome(e.stdout, done)
	return nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func renderTable(out io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "(none)")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(out, t.Render())
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
