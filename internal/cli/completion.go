package cli

import (
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for uccwallet.

Configuration paths are completed for 'config get' and 'config set'.

Bash:
  $ source <(uccwallet completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ uccwallet completion bash > /etc/bash_completion.d/uccwallet
  # macOS:
  $ uccwallet completion bash > $(brew --prefix)/etc/bash_completion.d/uccwallet

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  $ uccwallet completion zsh > "${fpath[1]}/_uccwallet"

Fish:
  $ uccwallet completion fish > ~/.config/fish/completions/uccwallet.fish

PowerShell:
  PS> uccwallet completion powershell | Out-String | Invoke-Expression
`,
	Example: `  uccwallet completion bash
  uccwallet completion zsh > "${fpath[1]}/_uccwallet"`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(w)
		case "zsh":
			return cmd.Root().GenZshCompletion(w)
		case "fish":
			return cmd.Root().GenFishCompletion(w, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(w)
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	completionCmd.GroupID = "config"
	rootCmd.AddCommand(completionCmd)
}
