package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/interchange"
	"github.com/R3E-Network/layout_service/internal/app/services/share"
	"github.com/spf13/cobra"
)

// NewLayoutCommand groups whole-layout commands.
func NewLayoutCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Read, replace and analyse store layouts",
	}
	cmd.AddCommand(newLayoutGetCommand(opts))
	cmd.AddCommand(newLayoutPutCommand(opts))
	cmd.AddCommand(newLayoutShareCommand(opts))
	return cmd
}

func newLayoutGetCommand(opts *RootOptions) *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "get <store_id>",
		Short: "Show a store layout",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := intArg(args, 0, "store_id")
			if err != nil {
				return err
			}
			l, err := opts.client().GetLayout(cmd.Context(), id)
			if err != nil {
				return err
			}
			if outFile != "" {
				if err := interchange.SaveFile(outFile, l); err != nil {
					return localError("save layout", err)
				}
				opts.out.Done(fmt.Sprintf("layout of store %d written to %s", id, outFile))
				return nil
			}
			return opts.out.Success(l, func(w io.Writer) { printLayout(w, l) })
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the snapshot to this file instead of printing it")
	return cmd
}

func newLayoutPutCommand(opts *RootOptions) *cobra.Command {
	var storeID int
	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Replace a store layout with a snapshot file",
		Long:  "put uploads the snapshot verbatim. The target store is the snapshot's store_id unless --store is given.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := interchange.LoadFile(args[0])
			if err != nil {
				return localError("load snapshot", err)
			}
			target := l.StoreID
			if cmd.Flags().Changed("store") {
				target = storeID
			}
			stored, msg, err := opts.client().PutLayout(cmd.Context(), target, l)
			if err != nil {
				return err
			}
			return opts.out.Success(stored, func(w io.Writer) {
				fmt.Fprintf(w, "%s: store %d, %s\n", msg, target, plural(stored.ModuleCount(), "module"))
			})
		},
	}
	cmd.Flags().IntVar(&storeID, "store", 0, "store id to replace (defaults to the snapshot's store_id)")
	return cmd
}

func newLayoutShareCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "share <store_id>",
		Short: "Show the share of module slots per category",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := intArg(args, 0, "store_id")
			if err != nil {
				return err
			}
			shares, err := opts.client().Share(cmd.Context(), id)
			if err != nil {
				return err
			}
			data := make(map[string]float64, len(shares))
			for k, v := range shares {
				data[strconv.Itoa(k)] = v
			}
			return opts.out.Success(data, func(w io.Writer) { printShare(w, shares) })
		},
	}
}

func printShare(w io.Writer, shares map[int]float64) {
	if len(shares) == 0 {
		fmt.Fprintln(w, "no categories assigned")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSHARE")
	for _, e := range share.Sorted(shares) {
		fmt.Fprintf(tw, "%d\t%.2f%%\n", e.CategoryID, e.Percentage)
	}
	tw.Flush()
}

func printLayout(w io.Writer, l layout.Layout) {
	fmt.Fprintf(w, "store %d: %s in %s\n", l.StoreID, plural(l.ModuleCount(), "module"), plural(len(l.Columns), "column"))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOL\tROW\tNAME\tX\tY\tSIZE\tROT\tCATEGORY")
	for _, col := range l.Columns {
		for _, m := range col {
			printModuleRow(tw, m)
		}
	}
	tw.Flush()
}

func printModuleRow(w io.Writer, m layout.Module) {
	cat := "-"
	if m.CategoryID != nil {
		cat = strconv.Itoa(*m.CategoryID)
	}
	fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%d\t%d\t%dx%d\t%d\t%s\n",
		m.ModuleID, m.Column, m.Row, m.Name, m.X, m.Y, m.Width, m.Height, m.Rotation, cat)
}
