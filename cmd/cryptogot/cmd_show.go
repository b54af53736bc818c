package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/disiqueira/gotree/v3"
	"github.com/odvcencio/cryptogot/pkg/ledger"
	"github.com/odvcencio/cryptogot/pkg/object"
	"github.com/odvcencio/cryptogot/pkg/repo"
	"github.com/spf13/cobra"
)

func newShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [commit | vN]",
		Short: "Show a commit and the files in its snapshot",
		Long: "Show a commit and the files in its snapshot. The argument is a commit\n" +
			"hash, a version number such as v3, or HEAD (the default).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.openRepo(cmd)
			if err != nil {
				return err
			}

			target := "HEAD"
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				target = strings.TrimSpace(args[0])
			}
			h, err := resolveCommit(r, target)
			if err != nil {
				return err
			}
			commit, err := r.Store.ReadCommit(h)
			if err != nil {
				return fmt.Errorf("show: read commit %s: %w", h, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "commit %s\n", h)
			if commit.Parent != "" {
				fmt.Fprintf(out, "Parent: %s\n", commit.Parent)
			}
			fmt.Fprintf(out, "Author: %s\n", commit.Author)
			fmt.Fprintf(out, "Date:   %s\n", commit.Date.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "    %s\n", commit.Message)
			fmt.Fprintln(out)

			files, err := r.FlattenTree(commit.TreeHash)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}
			fmt.Fprint(out, renderTree(shortHash(string(commit.TreeHash)), files))

			total, sealed, err := r.SealedObjects(h)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}
			fmt.Fprintf(out, "\nObjects: %d (%d sealed)\n", total, sealed)
			return nil
		},
	}
}

// resolveCommit accepts HEAD, a version number with or without a leading
// "v", or a full commit hash.
func resolveCommit(r *repo.Repo, target string) (object.Hash, error) {
	if target == "HEAD" {
		return r.Head()
	}
	if n, ok := ledger.ParseVersion(strings.TrimPrefix(target, "v")); ok {
		return r.Ledger.Read(n)
	}
	if object.IsHash(target) {
		return object.Hash(target), nil
	}
	return "", fmt.Errorf("unknown revision %q", target)
}

// renderTree draws files as a directory tree under label.
func renderTree(label string, files []repo.TreeFileEntry) string {
	sorted := make([]repo.TreeFileEntry, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	root := gotree.New(label)
	dirs := map[string]gotree.Tree{"": root}
	var dirFor func(p string) gotree.Tree
	dirFor = func(p string) gotree.Tree {
		if d, ok := dirs[p]; ok {
			return d
		}
		parent, base := "", p
		if i := strings.LastIndexByte(p, '/'); i >= 0 {
			parent, base = p[:i], p[i+1:]
		}
		d := dirFor(parent).Add(base + "/")
		dirs[p] = d
		return d
	}

	for _, f := range sorted {
		dir, base := "", f.Path
		if i := strings.LastIndexByte(f.Path, '/'); i >= 0 {
			dir, base = f.Path[:i], f.Path[i+1:]
		}
		dirFor(dir).Add(fmt.Sprintf("%s %s", base, shortHash(string(f.Hash))))
	}
	return root.Print()
}
