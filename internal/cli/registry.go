package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/R3E-Network/layout_service/internal/app/domain/category"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	"github.com/spf13/cobra"
)

// NewStoreCommand groups store registration commands.
func NewStoreCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Register and inspect stores",
	}
	cmd.AddCommand(newStoreCreateCommand(opts))
	cmd.AddCommand(newStoreGetCommand(opts))
	cmd.AddCommand(newStoreListCommand(opts))
	return cmd
}

func newStoreCreateCommand(opts *RootOptions) *cobra.Command {
	var st store.Store

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Register a store and build its initial layout",
		Example: `  layoutctl store create --id 1 --name "Main Street" --columns 4 --rows 6`,
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "id", "name", "columns", "rows"); err != nil {
				return err
			}
			created, msg, err := opts.client().CreateStore(cmd.Context(), st)
			if err != nil {
				return err
			}
			return opts.out.Success(created, func(w io.Writer) {
				fmt.Fprintf(w, "%s: ", msg)
				printStore(w, created)
			})
		},
	}

	cmd.Flags().IntVar(&st.ID, "id", 0, "store id")
	cmd.Flags().StringVar(&st.Name, "name", "", "store name")
	cmd.Flags().IntVar(&st.NumColumns, "columns", 0, "number of columns")
	cmd.Flags().IntVar(&st.ModulesPerColumn, "rows", 0, "modules per column")
	return cmd
}

func newStoreGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <store_id>",
		Short: "Show a store",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := intArg(args, 0, "store_id")
			if err != nil {
				return err
			}
			st, err := opts.client().GetStore(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.out.Success(st, func(w io.Writer) { printStore(w, st) })
		},
	}
}

func newStoreListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stores",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := opts.client().ListStores(cmd.Context())
			if err != nil {
				return err
			}
			return opts.out.Success(stores, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tCOLUMNS\tROWS")
				for _, st := range stores {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", st.ID, st.Name, st.NumColumns, st.ModulesPerColumn)
				}
				tw.Flush()
			})
		},
	}
}

func printStore(w io.Writer, st store.Store) {
	fmt.Fprintf(w, "store %d %q (%d columns x %d modules)\n", st.ID, st.Name, st.NumColumns, st.ModulesPerColumn)
}

// NewCategoryCommand groups category commands.
func NewCategoryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Register and list product categories",
	}
	cmd.AddCommand(newCategoryCreateCommand(opts))
	cmd.AddCommand(newCategoryListCommand(opts))
	return cmd
}

func newCategoryCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		id   int
		name string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a category",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "id", "name"); err != nil {
				return err
			}
			cat, err := opts.client().CreateCategory(cmd.Context(), id, name)
			if err != nil {
				return err
			}
			return opts.out.Success(cat, func(w io.Writer) {
				fmt.Fprint(w, "category created: ")
				printCategory(w, cat)
			})
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "category id")
	cmd.Flags().StringVar(&name, "name", "", "category name")
	return cmd
}

func newCategoryListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := opts.client().ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			return opts.out.Success(cats, func(w io.Writer) {
				for _, cat := range cats {
					printCategory(w, cat)
				}
			})
		},
	}
}

func printCategory(w io.Writer, cat category.Category) {
	fmt.Fprintf(w, "%d\t%s\n", cat.ID, cat.Name)
}
