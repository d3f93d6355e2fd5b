package main

import (
	"github.com/chris/phoenix/internal/service"
	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the launchd agents (macOS)",
	Long: `Installs phoenix as a launchd user agent. The optional argument picks
the daemon: remind (default) or bot.

  phoenix service install
  phoenix service install bot
  phoenix service logs remind`,
}

func serviceAction(use, short string, run func(*service.Service) error) *cobra.Command {
	return &cobra.Command{
		Use:       use + " [remind|bot]",
		Short:     short,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{service.CommandRemind, service.CommandBot},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := service.CommandRemind
			if len(args) == 1 {
				name = args[0]
			}
			svc, err := service.New(name, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return run(svc)
		},
	}
}

func init() {
	serviceCmd.AddCommand(
		serviceAction("install", "Install the binary and load the launchd agent", (*service.Service).Install),
		serviceAction("uninstall", "Unload and remove the launchd agent", (*service.Service).Uninstall),
		serviceAction("start", "Start the agent", (*service.Service).Start),
		serviceAction("stop", "Stop the agent", (*service.Service).Stop),
		serviceAction("restart", "Restart the agent", (*service.Service).Restart),
		serviceAction("status", "Show launchd status", (*service.Service).Status),
		serviceAction("logs", "Tail the agent's logs", (*service.Service).Logs),
	)
}
