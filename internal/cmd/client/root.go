package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the geyserd client.
// It registers subscribe and the unary query commands.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "geyser",
		Short: "geyserd client commands",
	}
	Register(root)
	return root
}

// Register adds the client commands to root. Each command carries its own
// connection flags so they do not leak onto sibling server commands.
func Register(root *cobra.Command) {
	for _, newCmd := range []func(*connOptions) *cobra.Command{
		newSubscribeCommand,
		newPingCommand,
		newSlotCommand,
		newBlockHeightCommand,
		newBlockhashCommand,
		newVersionCommand,
	} {
		conn := &connOptions{}
		cmd := newCmd(conn)
		bindConnFlags(cmd, conn)
		root.AddCommand(cmd)
	}
}
