// Command ffarc lists and extracts the archives of a game installation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/meigma/ffarchive/config"
	"github.com/meigma/ffarchive/resolver"
)

const usage = `ffarc lists and extracts game archives.

Usage:
  ffarc <command> [flags] [args]

Commands:
  archives                       show archive definitions and where they resolve
  list <archive>                 list the entries of an archive
  extract <archive> <name>       write one entry to stdout or --output
  extract-all <archive> <dest>   write every entry under dest
  snapshot <archive> <file>      save the archive's index as a snapshot

Run "ffarc <command> --help" for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	args  string
	nargs int
	setup func(fs *pflag.FlagSet) runFunc
}

var commands = map[string]command{
	"archives":    {nargs: 0, setup: archivesCommand},
	"list":        {args: "<archive>", nargs: 1, setup: listCommand},
	"extract":     {args: "<archive> <name>", nargs: 2, setup: extractCommand},
	"extract-all": {args: "<archive> <dest>", nargs: 2, setup: extractAllCommand},
	"snapshot":    {args: "<archive> <file>", nargs: 2, setup: snapshotCommand},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stdout, usage)
		return nil
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (see ffarc help)", name)
	}

	flagSet := pflag.NewFlagSet("ffarc "+name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	e := &env{stdout: stdout, stderr: stderr}
	e.addFlags(flagSet)
	exec := cmd.setup(flagSet)
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  ffarc %s [flags] %s\n\nFlags:\n%s", name, cmd.args, flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != cmd.nargs {
		flagSet.Usage()
		return fmt.Errorf("%s takes %d argument(s), got %d", name, cmd.nargs, flagSet.NArg())
	}

	reg, err := e.open()
	if err != nil {
		return err
	}
	defer reg.Close()
	return exec(ctx, e, flagSet.Args())
}

// env carries the flags shared by every command and the registry they
// configure.
type env struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	root       string
	lang       string
	logLevel   string
	cacheKind  string
	cacheDir   string

	logger *slog.Logger
	reg    *resolver.Registry
}

func (e *env) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&e.configPath, "config", "c", "ffarc.yaml", "configuration file")
	fs.StringVarP(&e.root, "root", "r", "", "game directory or http(s) URL (overrides config)")
	fs.StringVar(&e.lang, "lang", "", "language directory (overrides config)")
	fs.StringVar(&e.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	fs.StringVar(&e.cacheKind, "cache", "", "entry cache: none, memory or disk (overrides config)")
	fs.StringVar(&e.cacheDir, "cache-dir", "", "disk cache directory (overrides config)")
}

// open loads the configuration, applies flag overrides and opens the
// registry.
func (e *env) open() (*resolver.Registry, error) {
	cfg, err := config.LoadFile(e.configPath)
	if err != nil {
		return nil, err
	}
	for dst, src := range map[*string]string{
		&cfg.Root:       e.root,
		&cfg.Language:   e.lang,
		&cfg.LogLevel:   e.logLevel,
		&cfg.Cache.Kind: e.cacheKind,
		&cfg.Cache.Dir:  e.cacheDir,
	} {
		if src != "" {
			*dst = src
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	e.logger = slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))

	opts, err := cfg.RegistryOptions(e.logger)
	if err != nil {
		return nil, err
	}
	e.reg, err = resolver.New(cfg.Root, opts...)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("opened game root", "root", cfg.Root, "lang", cfg.Language)
	return e.reg, nil
}
