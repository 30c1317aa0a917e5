package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/chatrelay/internal/types"
)

var sessionUser string

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.PersistentFlags().StringVar(&sessionUser, "user", "", "user id owning the sessions (required)")
	sessionCmd.AddCommand(sessionListCmd, sessionNewCmd, sessionDeleteCmd, sessionExportCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage chat sessions",
}

func requireUser() (types.Identity, error) {
	if sessionUser == "" {
		return types.Identity{}, fmt.Errorf("--user is required")
	}
	return types.Identity{ID: types.UserID(sessionUser)}, nil
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, err := requireUser()
		if err != nil {
			return err
		}
		cfg := loadConfig()
		setupLogging(cfg)

		hub, err := buildHub(cfg)
		if err != nil {
			return err
		}
		c := hub.Get(identity)

		sessions, err := c.Sessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		current := c.CurrentID()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tUPDATED\tCURRENT")
		for _, s := range sessions {
			marker := ""
			if s.ID == current {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				s.ID,
				s.Title,
				time.UnixMilli(s.LastUpdated).Format("2006-01-02 15:04:05"),
				marker,
			)
		}
		return w.Flush()
	},
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session and make it current",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, err := requireUser()
		if err != nil {
			return err
		}
		cfg := loadConfig()
		setupLogging(cfg)

		hub, err := buildHub(cfg)
		if err != nil {
			return err
		}
		s, err := hub.Get(identity).NewSession()
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		fmt.Printf("Created session %s (%q)\n", s.ID, s.Title)
		return nil
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Print a session's conversation as a shareable transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, err := requireUser()
		if err != nil {
			return err
		}
		cfg := loadConfig()
		setupLogging(cfg)

		hub, err := buildHub(cfg)
		if err != nil {
			return err
		}
		transcript, err := hub.Get(identity).Export(types.SessionID(args[0]))
		if err != nil {
			return fmt.Errorf("export session: %w", err)
		}
		fmt.Println(transcript)
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, err := requireUser()
		if err != nil {
			return err
		}
		cfg := loadConfig()
		setupLogging(cfg)

		hub, err := buildHub(cfg)
		if err != nil {
			return err
		}
		c := hub.Get(identity)
		if err := c.DeleteSession(types.SessionID(args[0])); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if cur := c.CurrentID(); cur != "" {
			fmt.Printf("Deleted. Current session is now %s.\n", cur)
		} else {
			fmt.Println("Deleted. No sessions remain.")
		}
		return nil
	},
}
