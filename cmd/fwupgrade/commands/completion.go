package commands

import (
	"github.com/spf13/cobra"
)

// Completion returns the completion command for shell autocompletion.
func Completion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for fwupgrade.

To load completions:

Bash:
  $ source <(fwupgrade completion bash)
  # To load completions for each session, execute once:
  $ fwupgrade completion bash > /etc/bash_completion.d/fwupgrade

Zsh:
  $ fwupgrade completion zsh > "${fpath[1]}/_fwupgrade"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ fwupgrade completion fish > ~/.config/fish/completions/fwupgrade.fish

PowerShell:
  PS> fwupgrade completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
