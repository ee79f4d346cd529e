package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	feedbackCmd.Flags().String("session", "", "session the message belongs to (default: the live session)")
	rootCmd.AddCommand(feedbackCmd)
}

var feedbackCmd = &cobra.Command{
	Use:       "feedback <messageId> like|dislike",
	Short:     "Like or dislike an assistant reply",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"like", "dislike"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var positive bool
		switch args[1] {
		case "like":
			positive = true
		case "dislike":
		default:
			return fmt.Errorf("feedback must be like or dislike, got %q", args[1])
		}

		s, err := openSession(currentSettings())
		if err != nil {
			return err
		}
		defer s.Close()
		ctx := ctxOf(cmd)

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			if sessionID, err = s.widget.SessionID(ctx); err != nil {
				return err
			}
		}
		if sessionID == "" {
			return fmt.Errorf("no live session, pass --session")
		}
		// feedback targets messages in the transcript, so load it first
		if err := s.widget.OpenSession(ctx, sessionID); err != nil {
			return err
		}
		if m, ok := s.widget.Transcript().Get(args[0]); ok && m.FeedbackLocked {
			fmt.Fprintf(cmd.OutOrStdout(), "Feedback was already recorded (%s).\n", m.Feedback)
			return nil
		}
		if err := s.widget.SubmitFeedback(ctx, args[0], positive); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Feedback recorded.")
		return nil
	},
}
