package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewCompletionCommand prints or installs a shell completion script.
func NewCompletionCommand() *cobra.Command {
	var install bool
	cmd := &cobra.Command{
		Use:       "completion <bash|zsh|fish|powershell>",
		Short:     "Generate shell completion script",
		Args:      exactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := args[0]
			if !install {
				return GenerateCompletion(cmd.Root(), shell, cmd.OutOrStdout())
			}
			target, err := InstallCompletion(cmd.Root(), shell)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completion script installed to: %s\n", target)
			return nil
		},
	}
	// Completion must work without a reachable server or valid --format.
	cmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }
	cmd.Flags().BoolVar(&install, "install", false, "write the script to the shell's completion directory")
	return cmd
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	default:
		return usageError("unsupported shell: %s (supported: bash, zsh, fish, powershell)", shell)
	}
}

// InstallCompletion writes the completion script into the per-user
// completion directory of shell and returns its path.
func InstallCompletion(root *cobra.Command, shell string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", localError("failed to get home directory", err)
	}

	var installPath string
	switch shell {
	case "bash":
		installPath = filepath.Join(homeDir, ".bash_completion.d", root.Name())
	case "zsh":
		installPath = filepath.Join(homeDir, ".zsh", "completion", "_"+root.Name())
	case "fish":
		installPath = filepath.Join(homeDir, ".config", "fish", "completions", root.Name()+".fish")
	default:
		return "", usageError("cannot install completion for shell: %s", shell)
	}
	if err := os.MkdirAll(filepath.Dir(installPath), 0o755); err != nil {
		return "", localError("failed to create completion directory", err)
	}

	f, err := os.Create(installPath)
	if err != nil {
		return "", localError("failed to write completion script", err)
	}
	defer f.Close()
	if err := GenerateCompletion(root, shell, f); err != nil {
		return "", err
	}
	return installPath, nil
}
