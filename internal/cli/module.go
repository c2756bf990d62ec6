package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/services/layouts"
	"github.com/spf13/cobra"
)

// NewModuleCommand groups single-module edits.
func NewModuleCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Add, remove and edit modules of a store layout",
	}
	cmd.AddCommand(newModuleAddCommand(opts))
	cmd.AddCommand(newModuleRemoveCommand(opts))
	cmd.AddCommand(newModuleUpdateCommand(opts))
	return cmd
}

func newModuleAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <store_id>",
		Short: "Append a module to the first column",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := intArg(args, 0, "store_id")
			if err != nil {
				return err
			}
			mod, err := opts.client().AddModule(cmd.Context(), storeID)
			if err != nil {
				return err
			}
			return opts.out.Success(mod, func(w io.Writer) {
				fmt.Fprintf(w, "module added to store %d\n", storeID)
				printModule(w, mod)
			})
		},
	}
}

func newModuleRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <store_id> <module_id>",
		Short: "Remove a module; unknown ids leave the layout unchanged",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := intArg(args, 0, "store_id")
			if err != nil {
				return err
			}
			moduleID, err := intArg(args, 1, "module_id")
			if err != nil {
				return err
			}
			l, err := opts.client().RemoveModule(cmd.Context(), storeID, moduleID)
			if err != nil {
				return err
			}
			return opts.out.Success(l, func(w io.Writer) {
				fmt.Fprintf(w, "module %d removed, store %d has %s\n", moduleID, storeID, plural(l.ModuleCount(), "module"))
			})
		},
	}
}

const moduleUpdateExample = `  layoutctl module update 1 4 --category 2 --rotation 90
  layoutctl module update 1 4 --x 133 --y 47 --snap`

func newModuleUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		name                                string
		categoryID, width, height, rotation int
		x, y                                int
		u                                   layouts.ModuleUpdate
	)
	cmd := &cobra.Command{
		Use:     "update <store_id> <module_id>",
		Short:   "Edit a module",
		Example: moduleUpdateExample,
		Args:    exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := intArg(args, 0, "store_id")
			if err != nil {
				return err
			}
			moduleID, err := intArg(args, 1, "module_id")
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("category") {
				u.CategoryID = &categoryID
			}
			if flags.Changed("width") {
				u.Width = &width
			}
			if flags.Changed("height") {
				u.Height = &height
			}
			if flags.Changed("rotation") {
				u.Rotation = &rotation
			}
			if flags.Changed("x") {
				u.X = &x
			}
			if flags.Changed("y") {
				u.Y = &y
			}
			if u.Empty() {
				return usageError("nothing to update: pass at least one attribute flag")
			}
			if err := u.Validate(); err != nil {
				return usageError("%v", err)
			}

			mod, err := opts.client().UpdateModule(cmd.Context(), storeID, moduleID, u)
			if err != nil {
				return err
			}
			return opts.out.Success(mod, func(w io.Writer) {
				fmt.Fprintf(w, "module %d updated\n", moduleID)
				printModule(w, mod)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "module name")
	f.IntVar(&categoryID, "category", 0, "category id to assign")
	f.BoolVar(&u.ClearCategory, "clear-category", false, "unassign the category")
	f.IntVar(&width, "width", 0, fmt.Sprintf("width (%d-%d)", layout.MinModuleSize, layout.MaxModuleSize))
	f.IntVar(&height, "height", 0, fmt.Sprintf("height (%d-%d)", layout.MinModuleSize, layout.MaxModuleSize))
	f.IntVar(&rotation, "rotation", 0, "rotation in degrees (0-360)")
	f.IntVar(&x, "x", 0, "x position")
	f.IntVar(&y, "y", 0, "y position")
	f.BoolVar(&u.Snap, "snap", false, "snap the position to the grid after moving")
	cmd.MarkFlagsMutuallyExclusive("category", "clear-category")
	return cmd
}

func printModule(w io.Writer, m layout.Module) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOL\tROW\tNAME\tX\tY\tSIZE\tROT\tCATEGORY")
	printModuleRow(tw, m)
	tw.Flush()
}

// NewSnapCommand snaps a position to the layout grid.
func NewSnapCommand(opts *RootOptions) *cobra.Command {
	var (
		unit  int
		local bool
	)
	cmd := &cobra.Command{
		Use:   "snap <x> <y>",
		Short: "Round a position to the nearest grid point",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := intArg(args, 0, "x")
			if err != nil {
				return err
			}
			y, err := intArg(args, 1, "y")
			if err != nil {
				return err
			}
			if unit < 0 {
				return usageError("--unit must be positive")
			}
			p := layout.Position{X: x, Y: y}
			if local {
				p = layouts.SnapToGridUnit(p, unit)
			} else if p, err = opts.client().Snap(cmd.Context(), p, unit); err != nil {
				return err
			}
			return opts.out.Success(p, func(w io.Writer) { fmt.Fprintf(w, "%d %d\n", p.X, p.Y) })
		},
	}
	cmd.Flags().IntVar(&unit, "unit", 0, fmt.Sprintf("grid unit (default %d)", layout.GridUnit))
	cmd.Flags().BoolVar(&local, "local", false, "compute locally without contacting the service")
	return cmd
}
