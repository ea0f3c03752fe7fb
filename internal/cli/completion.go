package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gradlab/pkg/integrations/lab"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for gradlab.

Bash:
  $ source <(gradlab completion bash)

Zsh:
  $ gradlab completion zsh > "${fpath[1]}/_gradlab"

Fish:
  $ gradlab completion fish > ~/.config/fish/completions/gradlab.fish

PowerShell:
  PS> gradlab completion powershell | Out-String | Invoke-Expression

Completions cover stroke scripts (*.toml), image files for upload, edit,
analyze and compare, the --layers directory and reconstruction modes.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

var imageExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp"}

// completeImages completes positional arguments with image files.
func completeImages(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return imageExtensions, cobra.ShellCompDirectiveFilterFileExt
}

// completeModes completes reconstruction modes.
func completeModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(lab.ModeFull) + "\treconstruct the whole image",
		string(lab.ModePatch) + "\treconstruct in patch mode",
	}, cobra.ShellCompDirectiveNoFileComp
}

// registerEditCompletions wires flag completions for the edit command.
func registerEditCompletions(cmd *cobra.Command) {
	cmd.ValidArgsFunction = completeImages
	_ = cmd.RegisterFlagCompletionFunc("mode", completeModes)
	_ = cmd.MarkFlagFilename("script", "toml")
	_ = cmd.MarkFlagFilename("out", "png")
	_ = cmd.MarkFlagDirname("layers")
}
