package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/chatrelay/internal/types"
)

var sendUser string

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendUser, "user", "", "user id sending the message (required)")
}

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send one message in the user's current session and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendUser == "" {
			return fmt.Errorf("--user is required")
		}
		cfg := loadConfig()
		setupLogging(cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		hub, err := buildHub(cfg)
		if err != nil {
			return err
		}
		c := hub.Get(types.Identity{ID: types.UserID(sendUser)})

		resolution, err := c.Send(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			// Remote failures still land in the session as an ERROR message;
			// print it the way a UI would render it.
			if resolution.Sender == types.SenderError {
				fmt.Println(resolution.Text)
				return nil
			}
			return err
		}
		fmt.Println(resolution.Text)
		return nil
	},
}
