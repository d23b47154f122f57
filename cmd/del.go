package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/dispool/internal/config"
	"github.com/bnema/dispool/internal/ipc"
)

var delCmd = &cobra.Command{
	Use:   "del <key>",
	Short: "Destroy a display+touch pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ipc.NewClient(config.Get().SocketPath())
		return client.SendCommand("del", args[0])
	},
}
