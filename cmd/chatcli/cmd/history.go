package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linesmerrill/clinic-chat-api/chat"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(openCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [search]",
	Short: "List your past chat sessions, optionally filtered by date",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(currentSettings())
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := s.widget.OpenHistory(ctxOf(cmd))
		if err != nil {
			return err
		}
		if len(args) > 0 {
			entries = s.widget.SearchHistory(strings.Join(args, " "))
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <sessionId>",
	Short: "Print the transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(currentSettings())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.widget.OpenSession(ctxOf(cmd), args[0]); err != nil {
			return err
		}
		printMessages(cmd.OutOrStdout(), s.widget.Messages())
		return nil
	},
}

func printHistory(w io.Writer, entries []chat.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s\n", e.DisplayTimestamp, e.SessionID)
	}
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
