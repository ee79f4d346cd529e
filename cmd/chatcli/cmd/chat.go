package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

const chatHelp = `commands:
  /new                 start a new conversation
  /history [search]    list past sessions
  /open <sessionId>    show a past session
  /like <messageId>    like a reply
  /dislike <messageId> dislike a reply
  /image <path> [text] send an image
  /quit                leave`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively with the clinic assistant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(currentSettings())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := ctxOf(cmd)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Type a message, or /help.")

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "/") {
				if err := s.send(ctx, cmd, line, ""); err != nil {
					return err
				}
				continue
			}
			quit, err := s.command(ctx, cmd, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	},
}

// command runs one slash command of the interactive loop
func (s *session) command(ctx context.Context, cmd *cobra.Command, line string) (bool, error) {
	out := cmd.OutOrStdout()
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/new":
		if err := s.widget.NewConversation(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Started a new conversation.")
	case "/history":
		entries, err := s.widget.OpenHistory(ctx)
		if err != nil {
			return false, err
		}
		if len(args) > 0 {
			entries = s.widget.SearchHistory(strings.Join(args, " "))
		}
		printHistory(out, entries)
	case "/open":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /open <sessionId>")
		}
		if err := s.widget.OpenSession(ctx, args[0]); err != nil {
			return false, err
		}
		printMessages(out, s.widget.Messages())
	case "/like", "/dislike":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <messageId>", name)
		}
		if err := s.widget.SubmitFeedback(ctx, args[0], name == "/like"); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Thanks for the feedback.")
	case "/image":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: /image <path> [text]")
		}
		text := strings.Join(args[1:], " ")
		if text == "" {
			text = "(image)"
		}
		return false, s.send(ctx, cmd, text, args[0])
	default:
		return false, fmt.Errorf("unknown command %s, try /help", name)
	}
	return false, nil
}
