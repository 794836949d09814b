package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/rosterguard/internal/config"
	"github.com/kazz187/rosterguard/internal/denylist"
	"github.com/kazz187/rosterguard/internal/monitor"
	"github.com/kazz187/rosterguard/internal/roster"
	"github.com/kazz187/rosterguard/pkg/clog"
	"github.com/kazz187/rosterguard/pkg/termcolor"
)

// errMatched makes check exit with status 1 without printing an error.
type errMatched int

func (e errMatched) Error() string {
	return fmt.Sprintf("%d denylisted player(s) found", int(e))
}

type cli struct {
	app *kingpin.Application

	denylistPath *string
	logLevel     *string
	colorMode    *string

	initCmd *kingpin.CmdClause

	checkCmd     *kingpin.CmdClause
	checkRoster  *string
	checkContext *string

	listCmd *kingpin.CmdClause

	watchCmd      *kingpin.CmdClause
	watchRoster   *string
	watchContext  *string
	watchInterval *time.Duration
	watchFS       *bool
}

func contexts() []string {
	out := make([]string, 0, len(denylist.Contexts))
	for _, c := range denylist.Contexts {
		out = append(out, string(c))
	}
	return out
}

func newCLI(env *config.Env) *cli {
	c := &cli{}
	c.app = kingpin.New("rosterguard", "Warns when denylisted players show up in a game session roster")

	c.denylistPath = c.app.Flag("denylist", "Denylist file, one player per line").Default(env.DenylistPath).String()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").Default(env.LogLevel).String()
	mode, _ := termcolor.ParseMode(env.Color)
	c.colorMode = c.app.Flag("color", "Colored output").Default(string(mode)).Enum(termcolor.Modes...)

	c.initCmd = c.app.Command("init", "Create the denylist file if it does not exist")

	c.checkCmd = c.app.Command("check", "Check a roster file once; exits 1 when a denylisted player is found")
	c.checkRoster = c.checkCmd.Flag("roster", "YAML roster file (player id: name)").Default(env.RosterPath).String()
	c.checkContext = c.checkCmd.Flag("context", "Where the roster was seen").Enum(contexts()...)

	c.listCmd = c.app.Command("list", "Print the denylist entries")

	c.watchCmd = c.app.Command("watch", "Poll a roster file and warn about denylisted players")
	c.watchRoster = c.watchCmd.Flag("roster", "YAML roster file (player id: name)").Default(env.RosterPath).String()
	c.watchContext = c.watchCmd.Flag("context", "Where the roster was seen").Enum(contexts()...)
	c.watchInterval = c.watchCmd.Flag("interval", "Poll interval").Default(env.PollInterval.String()).Duration()
	c.watchFS = c.watchCmd.Flag("fs-watch", "Reload the denylist as soon as the file changes").Default(fmt.Sprint(env.FSWatch)).Bool()

	return c
}

func colored(mode termcolor.Mode, w io.Writer) bool {
	f, _ := w.(*os.File)
	return termcolor.Supported(mode, f)
}

func (c *cli) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	command, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	mode, err := termcolor.ParseMode(*c.colorMode)
	if err != nil {
		return err
	}
	logger := clog.New(stderr, clog.ParseLevel(*c.logLevel), colored(mode, stderr))
	store := denylist.New(*c.denylistPath, denylist.WithLogger(logger))
	renderer := denylist.NewRenderer(stdout, denylist.TextFormatter{Color: colored(mode, stdout)}, logger)

	switch command {
	case c.initCmd.FullCommand():
		fmt.Fprintf(stdout, "%s: %d entries\n", store.Path(), store.Size())
		return nil

	case c.checkCmd.FullCommand():
		return check(store, renderer, *c.checkRoster, denylist.Context(*c.checkContext))

	case c.listCmd.FullCommand():
		return list(stdout, store)

	case c.watchCmd.FullCommand():
		m := monitor.New(monitor.Config{
			Interval: *c.watchInterval,
			Context:  denylist.Context(*c.watchContext),
			FSWatch:  *c.watchFS,
		}, store, monitor.FileSource{Path: *c.watchRoster}, renderer, logger.With("component", "monitor"))
		return m.Run(ctx)
	}
	return fmt.Errorf("unknown command %q", command)
}

func check(store *denylist.Store, renderer *denylist.Renderer, rosterPath string, where denylist.Context) error {
	r, err := roster.LoadFile(rosterPath)
	if err != nil {
		return err
	}
	matches := store.CheckAll(r.All())
	renderer.RenderWarning(matches, where)
	if len(matches) > 0 {
		return errMatched(len(matches))
	}
	return nil
}

func list(w io.Writer, store *denylist.Store) error {
	for _, entry := range store.Snapshot() {
		if _, err := fmt.Fprintln(w, entry); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = newCLI(env).run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err == nil {
		return
	}
	var matched errMatched
	if errors.As(err, &matched) {
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(2)
}
