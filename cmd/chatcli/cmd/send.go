package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linesmerrill/clinic-chat-api/chat"
)

func init() {
	sendCmd.Flags().String("image", "", "attach an image file to the message")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send one message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(currentSettings())
		if err != nil {
			return err
		}
		defer s.Close()

		imagePath, _ := cmd.Flags().GetString("image")
		return s.send(ctxOf(cmd), cmd, strings.Join(args, " "), imagePath)
	},
}

// send uploads the optional image, sends text and prints what the widget appended
func (s *session) send(ctx context.Context, cmd *cobra.Command, text, imagePath string) error {
	imageRef := ""
	if imagePath != "" {
		ref, err := s.upload(ctx, imagePath)
		if err != nil {
			return err
		}
		imageRef = ref
	}

	before := len(s.widget.Messages())
	if err := s.widget.Send(ctx, text, imageRef); err != nil {
		return err
	}
	msgs := s.widget.Messages()
	if len(msgs) > before {
		// the user's own line is already on screen
		for _, m := range msgs[before:] {
			if m.Origin != chat.OriginUser {
				printMessage(cmd.OutOrStdout(), m)
			}
		}
	}

	if id, err := s.widget.SessionID(ctx); err == nil && id != "" {
		s.log.Debugw("live session", "sessionId", id)
	}
	return nil
}

func (s *session) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%s does not look like an image", path)
	}
	return s.gateway.UploadImage(ctx, filepath.Base(path), contentType, f, s.conf.Token)
}
