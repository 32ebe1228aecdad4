package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	archive "github.com/meigma/ffarchive/core"
	"github.com/meigma/ffarchive/resolver"
)

type runFunc = func(ctx context.Context, e *env, args []string) error

func archivesCommand(fs *pflag.FlagSet) runFunc {
	resolve := fs.Bool("resolve", false, "open each archive and report its layout")
	return func(ctx context.Context, e *env, _ []string) error {
		w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDIRS\tPARENT\tLAYOUT\tPATH")
		for _, d := range e.reg.Definitions() {
			layout, where := "-", "-"
			if *resolve {
				a, err := e.reg.Resolve(ctx, d.Name)
				switch {
				case err == nil:
					layout, where = a.Layout().String(), a.Path()
				case errors.Is(err, os.ErrNotExist):
					layout = "missing"
				default:
					layout = "error"
					e.logger.Warn("resolve archive", "archive", d.Name, "error", err)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, dirList(d.Dirs), orDash(d.Parent), layout, where)
		}
		return w.Flush()
	}
}

func listCommand(fs *pflag.FlagSet) runFunc {
	by := fs.String("by", "name", "sort entries by name or offset")
	long := fs.BoolP("long", "l", false, "show offsets, sizes and compression")
	return func(ctx context.Context, e *env, args []string) error {
		if *by != "name" && *by != "offset" {
			return fmt.Errorf("--by must be name or offset, got %q", *by)
		}
		a, err := e.reg.Resolve(ctx, args[0])
		if err != nil {
			return err
		}

		if m := a.Map(); m != nil {
			return listMap(e, m, *by == "offset", *long)
		}
		if d := a.Directory(); d != nil && *long {
			return listDirectory(e, d, *by == "offset")
		}
		names, err := a.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(e.stdout, name)
		}
		return nil
	}
}

func listMap(e *env, m *archive.Map, byOffset, long bool) error {
	entries := m.ByName()
	if byOffset {
		entries = m.ByOffset()
	}
	if !long {
		for _, entry := range entries {
			fmt.Fprintln(e.stdout, entry.Name)
		}
		return nil
	}

	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "OFFSET\tREGION\tSIZE\tKIND\t NAME")
	for _, entry := range entries {
		region := "-"
		if size, ok := m.RegionSize(entry); ok {
			region = fmt.Sprint(size)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t %s\n", entry.Offset, region, entry.UncompressedSize, entry.Kind, entry.Name)
	}
	return w.Flush()
}

func listDirectory(e *env, d *resolver.Directory, byOffset bool) error {
	entries := d.Entries()
	if byOffset {
		sortZZZByOffset(entries)
	}
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "OFFSET\tSIZE\t NAME")
	for _, entry := range entries {
		fmt.Fprintf(w, "%d\t%d\t %s\n", entry.Offset, entry.Size, entry.Name)
	}
	return w.Flush()
}

func extractCommand(fs *pflag.FlagSet) runFunc {
	output := fs.StringP("output", "o", "", "write to this file instead of stdout")
	return func(ctx context.Context, e *env, args []string) error {
		data, err := e.reg.ReadFile(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if *output == "" {
			_, err = e.stdout.Write(data)
			return err
		}
		return os.WriteFile(*output, data, 0o644) //nolint:gosec // extracted files are not secret
	}
}

func extractAllCommand(fs *pflag.FlagSet) runFunc {
	workers := fs.IntP("workers", "j", 0, "entries decoded concurrently (0 = one per CPU)")
	overwrite := fs.Bool("overwrite", false, "replace files that already exist")
	return func(ctx context.Context, e *env, args []string) error {
		stats, err := e.reg.ExtractAll(ctx, args[0], args[1],
			resolver.WithWorkers(*workers),
			resolver.WithOverwrite(*overwrite),
		)
		fmt.Fprintf(e.stdout, "extracted=%d skipped=%d bytes=%d\n", stats.Extracted, stats.Skipped, stats.Bytes)
		return err
	}
}

func snapshotCommand(_ *pflag.FlagSet) runFunc {
	return func(ctx context.Context, e *env, args []string) error {
		a, err := e.reg.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		m := a.Map()
		if m == nil {
			return fmt.Errorf("%s is a %s archive and has no index to snapshot", args[0], a.Layout())
		}
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		if err := m.WriteSnapshot(f, a.SourceID()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "wrote %d entries to %s\n", m.Len(), args[1])
		return nil
	}
}

func sortZZZByOffset(entries []resolver.ZZZEntry) {
	slices.SortStableFunc(entries, func(a, b resolver.ZZZEntry) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
}

func dirList(dirs []string) string {
	quoted := make([]string, len(dirs))
	for i, d := range dirs {
		if d == "" {
			d = "."
		}
		quoted[i] = d
	}
	return strings.Join(quoted, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
