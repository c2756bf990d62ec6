package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/R3E-Network/layout_service/internal/app/archive"
	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/interchange"
	"github.com/R3E-Network/layout_service/internal/httputil"
	"github.com/spf13/cobra"
)

const (
	exportLong = `export writes a store's layout as a snapshot file. dest is a file path or an
s3://bucket/key URL. With --all every store is exported into the directory or
bucket prefix dest, one store-<id>.json per store.`

	exportExample = `  layoutctl export 1 ./main-street.json
  layoutctl export --all s3://layouts/nightly/`

	importLong = `import uploads a snapshot. A store that does not exist yet is created with its
shape inferred from the snapshot; an existing store has its layout replaced.
With --all every snapshot under the directory or bucket prefix src is imported.`
)

// NewExportCommand saves store layouts as snapshots.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "export <store_id> <dest> | export --all <dest>",
		Short:   "Save layout snapshots to a file, directory or S3 bucket",
		Long:    exportLong,
		Example: exportExample,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return exactArgs(1)(cmd, args)
			}
			return exactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			ctx := cmd.Context()
			if all {
				return exportAll(ctx, opts.out, client, args[0])
			}

			storeID, err := intArg(args, 0, "store_id")
			if err != nil {
				return err
			}
			l, err := client.GetLayout(ctx, storeID)
			if err != nil {
				return err
			}
			if err := writeSnapshot(ctx, args[1], l); err != nil {
				return err
			}
			return opts.out.Success(map[string]any{"store_id": storeID, "dest": args[1]}, func(w io.Writer) {
				fmt.Fprintf(w, "exported store %d (%s) to %s\n", storeID, plural(l.ModuleCount(), "module"), args[1])
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "export every store")
	return cmd
}

func exportAll(ctx context.Context, out *OutputFormatter, client *httputil.Client, dest string) error {
	arch, prefix, err := openPrefix(ctx, dest)
	if err != nil {
		return localError("open destination", err)
	}
	stores, err := client.ListStores(ctx)
	if err != nil {
		return err
	}

	bar := NewProgressBar(out.ErrWriter, len(stores), "exporting", out.Color)
	keys := make([]string, 0, len(stores))
	for _, st := range stores {
		l, err := client.GetLayout(ctx, st.ID)
		if err != nil {
			return err
		}
		key := path.Join(prefix, archive.KeyForStore(st.ID))
		if err := arch.Put(ctx, key, l); err != nil {
			return localError("write snapshot", err)
		}
		keys = append(keys, key)
		bar.Increment()
	}
	bar.Finish()

	return out.Success(map[string]any{"dest": dest, "keys": keys}, func(w io.Writer) {
		fmt.Fprintf(w, "exported %s to %s\n", plural(len(keys), "store"), dest)
	})
}

// NewImportCommand uploads snapshots, creating stores that do not exist.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "import <src>",
		Short: "Load layout snapshots from a file, directory or S3 bucket",
		Long:  importLong,
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := opts.client()

			var results []httputil.ImportResult
			if all {
				arch, prefix, err := openPrefix(ctx, args[0])
				if err != nil {
					return localError("open source", err)
				}
				if prefix != "" {
					prefix += "/"
				}
				keys, err := arch.List(ctx, prefix)
				if err != nil {
					return localError("list snapshots", err)
				}

				bar := NewProgressBar(opts.out.ErrWriter, len(keys), "importing", opts.out.Color)
				results = make([]httputil.ImportResult, 0, len(keys))
				for _, key := range keys {
					l, err := arch.Get(ctx, key)
					if err != nil {
						return localError("read snapshot "+key, err)
					}
					res, err := client.Import(ctx, l)
					if err != nil {
						return err
					}
					results = append(results, res)
					bar.Increment()
				}
				bar.Finish()
			} else {
				l, err := readSnapshot(ctx, args[0])
				if err != nil {
					return err
				}
				res, err := client.Import(ctx, l)
				if err != nil {
					return err
				}
				results = []httputil.ImportResult{res}
			}

			data := make([]map[string]any, 0, len(results))
			for _, res := range results {
				data = append(data, map[string]any{"store_id": res.Store.ID, "created": res.Created})
			}
			return opts.out.Success(data, func(w io.Writer) {
				for _, res := range results {
					verb := "replaced layout of"
					if res.Created {
						verb = "created"
					}
					fmt.Fprintf(w, "%s store %d (%d columns x %d modules)\n",
						verb, res.Store.ID, res.Store.NumColumns, res.Store.ModulesPerColumn)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "import every snapshot under src")
	return cmd
}

// isArchiveURL reports whether target names an object store rather than a
// local path.
func isArchiveURL(target string) bool {
	return strings.HasPrefix(target, "s3://")
}

// writeSnapshot stores l at dest. A local dest is written at exactly that
// path; only s3:// URLs go through the archive key scheme.
func writeSnapshot(ctx context.Context, dest string, l layout.Layout) error {
	if isArchiveURL(dest) {
		arch, key, err := archive.Open(ctx, dest)
		if err != nil {
			return localError("open destination", err)
		}
		if err := arch.Put(ctx, key, l); err != nil {
			return localError("write snapshot", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return localError("open destination", err)
	}
	if err := interchange.SaveFile(dest, l); err != nil {
		return localError("write snapshot", err)
	}
	return nil
}

// readSnapshot loads the snapshot at src, a local path or an s3:// URL.
func readSnapshot(ctx context.Context, src string) (layout.Layout, error) {
	if isArchiveURL(src) {
		arch, key, err := archive.Open(ctx, src)
		if err != nil {
			return layout.Layout{}, localError("open source", err)
		}
		l, err := arch.Get(ctx, key)
		if err != nil {
			return layout.Layout{}, localError("read snapshot "+key, err)
		}
		return l, nil
	}
	l, err := interchange.LoadFile(src)
	if err != nil {
		return layout.Layout{}, localError("read snapshot", err)
	}
	return l, nil
}

// openPrefix opens dest as a directory or bucket prefix rather than a single
// snapshot.
func openPrefix(ctx context.Context, dest string) (archive.Archive, string, error) {
	return archive.Open(ctx, strings.TrimSuffix(dest, "/")+"/")
}
