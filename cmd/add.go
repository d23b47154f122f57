package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bnema/dispool/internal/config"
	"github.com/bnema/dispool/internal/ipc"
)

var addCmd = &cobra.Command{
	Use:   "add [key]",
	Short: "Create a display+touch pair",
	Long: `Asks the running daemon to create a new virtual display+touch pair
under the given key. When no key is given, a fresh UUID is generated and
printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := ""
		if len(args) == 1 {
			key = args[0]
		} else {
			key = uuid.NewString()
		}

		client := ipc.NewClient(config.Get().SocketPath())
		if err := client.SendCommand("add", key); err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}
