// Package cli implements layoutctl, the command-line client of the layout
// service.
package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/R3E-Network/layout_service/internal/httputil"
	"github.com/spf13/cobra"
)

// DefaultServer is the address layoutd listens on by default.
const DefaultServer = "http://127.0.0.1:8000"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server  string
	Format  string // "json" | "text"
	Timeout time.Duration

	out *OutputFormatter
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the layoutctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "layoutctl",
		Short:         "Manage store module layouts",
		Long:          "layoutctl registers stores and categories, edits store layouts and moves layout snapshots between the service and files or S3.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return usageError("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.out = newFormatter(cmd, opts.Format)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("LAYOUTCTL_SERVER", DefaultServer), "layout service base URL")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")

	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewCategoryCommand(opts))
	cmd.AddCommand(NewLayoutCommand(opts))
	cmd.AddCommand(NewModuleCommand(opts))
	cmd.AddCommand(NewSnapCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewCompletionCommand())

	return cmd
}

// Execute runs layoutctl with args and returns the process exit code.
// Failures are reported on stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}
	format := "text"
	if f := root.PersistentFlags().Lookup("format"); f != nil && slices.Contains(ValidFormats, f.Value.String()) {
		format = f.Value.String()
	}
	out := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr, Color: isTerminal(stderr)}
	out.Error(err)
	return GetExitCode(err)
}

func (o *RootOptions) client() *httputil.Client {
	return httputil.NewClient(httputil.ClientConfig{BaseURL: o.Server, Timeout: o.Timeout})
}

func newFormatter(cmd *cobra.Command, format string) *OutputFormatter {
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Color:     isTerminal(cmd.OutOrStdout()),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// intArg parses positional argument i as an integer id.
func intArg(args []string, i int, name string) (int, error) {
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, usageError("%s must be an integer, got %q", name, args[i])
	}
	return v, nil
}

func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			return usageError("flag --%s is required", name)
		}
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError("%s expects %s, got %d", cmd.CommandPath(), plural(n, "argument"), len(args))
		}
		return nil
	}
}
