package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the client commands.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "client",
		Short: "aesdsocket client commands",
	}
	AddCommands(root, baseURL)
	return root
}

// AddCommands registers the client commands on parent.
func AddCommands(parent *cobra.Command, baseURL BaseURLFunc) {
	parent.AddCommand(
		NewSendCommand(),
		NewLogCommand(baseURL),
		NewTasksCommand(baseURL),
		NewHealthCommand(),
	)
}
