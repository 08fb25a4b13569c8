// cmd/sessions.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/ColonelBlimp/cwlistener/internal/journal"
	"github.com/ColonelBlimp/cwlistener/internal/report"
	"github.com/spf13/cobra"
)

// ErrNoJournal indicates no journal path was configured
var ErrNoJournal = errors.New("journal_path is not set (use --journal)")

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions from the journal",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntP("limit", "n", 10, "number of sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.JournalPath == "" {
		return ErrNoJournal
	}
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := journal.Open(settings.JournalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no sessions recorded")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), report.Sessions(sessions, styled(cmd)))
	return nil
}
