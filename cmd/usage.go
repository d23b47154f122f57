package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/dispool/internal/config"
	"github.com/bnema/dispool/internal/ipc"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Print the daemon's control-channel usage text",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ipc.NewClient(config.Get().SocketPath())
		text, err := client.ReadUsage()
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}
