package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivetree/internal/hierarchy"
	"github.com/tonimelisma/drivetree/internal/tree"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder]",
		Short: "List the current folder or one of its sub-folders",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newCdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cd <path>",
		Short: "Change the current folder",
		Long: `Change the current folder. The path is resolved one name at a time
from the current folder; ".." moves to the parent and a leading "/" starts
at the root folder. "id:<folder-id>" jumps straight to a folder by ID.`,
		Args: cobra.ExactArgs(1),
		RunE: runCd,
	}
}

func newPwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pwd",
		Short: "Print the current folder path",
		Args:  cobra.NoArgs,
		RunE:  runPwd,
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder in the current folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func newRmdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir <name>",
		Short: "Delete an empty folder from the current folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runRmdir,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a file from the current folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [folder]",
		Short: "Print the folder hierarchy below the current folder",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTree,
	}

	cmd.Flags().IntP("depth", "L", 0, "levels to descend (default: tree.max_depth, 0 = unlimited)")

	return cmd
}

// subFolder resolves name among the active folder's sub-folders.
func subFolder(f tree.Folder, name string) (tree.Folder, error) {
	sub, ok := hierarchy.FindSubFolderByName(f, name)
	if !ok {
		return tree.Folder{}, fmt.Errorf("no folder named %q in %s", name, folderLabel(f))
	}

	return sub, nil
}

func folderLabel(f tree.Folder) string {
	if f.IsRoot() {
		return "the root folder"
	}

	return fmt.Sprintf("%q", f.Name)
}

func runLs(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}

		folder := a.active()

		if len(args) > 0 {
			sub, err := subFolder(folder, args[0])
			if err != nil {
				return err
			}

			a.cc.Logger.Debug("ls", slog.String("folder_id", sub.ID))

			fetched, err := a.client.NestedFolder(ctx, sub.ID)
			if err != nil {
				return fmt.Errorf("listing %q: %w", args[0], err)
			}

			folder = *fetched
		}

		entries := listEntries(folder)

		if a.cc.Flags.JSON {
			return printJSON(a.cc.Stdout, entries)
		}

		printEntriesTable(a.cc.Stdout, entries)

		return nil
	})
}

// lsEntry is the JSON output schema for a single item in ls output.
type lsEntry struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	IsFolder   bool      `json:"is_folder"`
	ModifiedAt time.Time `json:"modified_at"`
	ID         string    `json:"id"`
}

// listEntries returns f's children, folders first, then by name.
func listEntries(f tree.Folder) []lsEntry {
	out := make([]lsEntry, 0, len(f.SubFolders)+len(f.SubFiles))

	for _, c := range f.SubFolders {
		out = append(out, lsEntry{Name: c.Name, Size: c.Size, IsFolder: true, ModifiedAt: c.UpdatedAt, ID: c.ID})
	}

	for _, c := range f.SubFiles {
		out = append(out, lsEntry{Name: c.Name, Size: c.Size, ModifiedAt: c.UpdatedAt, ID: c.ID})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsFolder != out[j].IsFolder {
			return out[i].IsFolder
		}

		return out[i].Name < out[j].Name
	})

	return out
}

func printEntriesTable(w io.Writer, entries []lsEntry) {
	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		name := e.Name
		if e.IsFolder {
			name += "/"
		}

		rows = append(rows, []string{name, formatSize(e.Size), formatTime(e.ModifiedAt)})
	}

	printTable(w, headers, rows)
}

func runCd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}

		if err := a.changeFolder(ctx, args[0]); err != nil {
			return err
		}

		a.cc.Statusf("%s\n", crumbPath(a.store.Get().BreadCrumb))

		return nil
	})
}

// changeFolder walks target one segment at a time, fetching each folder on
// the way so the breadcrumb knows every name.
func (a *app) changeFolder(ctx context.Context, target string) error {
	if id, ok := strings.CutPrefix(target, "id:"); ok {
		return a.navigate(ctx, id)
	}

	if strings.HasPrefix(target, "/") {
		if err := a.navigate(ctx, a.store.Get().Identity.RootFolderID); err != nil {
			return err
		}
	}

	for _, seg := range strings.Split(target, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			cur := a.active()
			if cur.IsRoot() || cur.ParentFolderID == "" {
				continue
			}

			if err := a.navigate(ctx, cur.ParentFolderID); err != nil {
				return err
			}
		default:
			sub, err := subFolder(a.active(), seg)
			if err != nil {
				return err
			}

			if err := a.navigate(ctx, sub.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *app) navigate(ctx context.Context, folderID string) error {
	a.cc.Logger.Debug("navigating", slog.String("folder_id", folderID))

	_, err := a.syncer.FetchNestedFolder(ctx, folderID)

	return reported(err)
}

func runPwd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		sess := a.store.Get()
		if !sess.SignedIn() {
			return fmt.Errorf("not logged in; run 'drivetree login' first")
		}

		fmt.Fprintln(a.cc.Stdout, crumbPath(sess.BreadCrumb))

		return nil
	})
}

// crumbPath renders a breadcrumb as a slash-separated path. The root
// folder is "/"; folders whose names are not known show their ID.
func crumbPath(crumbs []tree.Summary) string {
	if len(crumbs) <= 1 {
		return "/"
	}

	names := make([]string, 0, len(crumbs)-1)

	for _, c := range crumbs[1:] {
		name := c.Name
		if name == "" {
			name = "<" + c.ID + ">"
		}

		names = append(names, name)
	}

	return "/" + strings.Join(names, "/")
}

func runMkdir(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}

		parent := a.active()

		if _, exists := hierarchy.FindSubFolderByName(parent, args[0]); exists {
			return fmt.Errorf("a folder named %q already exists in %s", args[0], folderLabel(parent))
		}

		created, err := a.syncer.CreateFolder(ctx, args[0], parent.ID)
		if err != nil {
			return reported(err)
		}

		if a.cc.Flags.JSON {
			return printJSON(a.cc.Stdout, lsEntry{Name: created.Name, IsFolder: true, ModifiedAt: created.UpdatedAt, ID: created.ID})
		}

		a.cc.Statusf("Created folder %q.\n", created.Name)

		return nil
	})
}

func runRmdir(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}

		sub, err := subFolder(a.active(), args[0])
		if err != nil {
			return err
		}

		if err := a.syncer.DeleteFolder(ctx, sub.ID); err != nil {
			return reported(err)
		}

		a.cc.Statusf("Deleted folder %q.\n", sub.Name)

		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}

		cur := a.active()

		file, ok := hierarchy.FindSubFileByName(cur, args[0])
		if !ok {
			if _, isFolder := hierarchy.FindSubFolderByName(cur, args[0]); isFolder {
				return fmt.Errorf("%q is a folder; use rmdir", args[0])
			}

			return fmt.Errorf("no file named %q in %s", args[0], folderLabel(cur))
		}

		if err := a.syncer.DeleteFile(ctx, file.ID); err != nil {
			return reported(err)
		}

		a.cc.Statusf("Deleted %q.\n", file.Name)

		return nil
	})
}

func runTree(cmd *cobra.Command, args []string) error {
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}

		start := a.active()

		if len(args) > 0 {
			start, err = subFolder(start, args[0])
			if err != nil {
				return err
			}
		}

		if depth <= 0 {
			depth = a.cc.Cfg.Tree.MaxDepth
		}

		root, err := hierarchy.Walk(ctx, a.client, start.ID, hierarchy.WalkOptions{
			Concurrency: a.cc.Cfg.Tree.Concurrency,
			MaxDepth:    depth,
			Logger:      a.cc.Logger,
		})
		if err != nil {
			return err
		}

		if a.cc.Flags.JSON {
			return printJSON(a.cc.Stdout, newTreeOutput(root))
		}

		name := start.Name
		if start.IsRoot() {
			name = "/"
		}

		fmt.Fprintln(a.cc.Stdout, name)
		printTree(a.cc.Stdout, root, "")

		return nil
	})
}

// treeOutput is the JSON schema for one folder in tree output.
type treeOutput struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Files    []string     `json:"files,omitempty"`
	Folders  []treeOutput `json:"folders,omitempty"`
	Complete bool         `json:"complete"`
}

func newTreeOutput(n *hierarchy.Node) treeOutput {
	out := treeOutput{ID: n.Folder.ID, Name: n.Folder.Name, Complete: n.Expanded}

	for _, f := range n.Folder.SubFiles {
		out.Files = append(out.Files, f.Name)
	}

	for _, c := range n.Children {
		out.Folders = append(out.Folders, newTreeOutput(c))
	}

	return out
}

// printTree draws n's children with box-drawing connectors, folders
// before files.
func printTree(w io.Writer, n *hierarchy.Node, prefix string) {
	type line struct {
		label string
		child *hierarchy.Node
	}

	lines := make([]line, 0, len(n.Children)+len(n.Folder.SubFiles))

	for _, c := range n.Children {
		label := c.Folder.Name + "/"
		if !c.Expanded {
			label += " ..."
		}

		lines = append(lines, line{label: label, child: c})
	}

	for _, f := range n.Folder.SubFiles {
		lines = append(lines, line{label: f.Name})
	}

	for i, l := range lines {
		connector, indent := "├── ", "│   "
		if i == len(lines)-1 {
			connector, indent = "└── ", "    "
		}

		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, l.label)

		if l.child != nil && l.child.Expanded {
			printTree(w, l.child, prefix+indent)
		}
	}
}
