package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print live chat events for the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := currentSettings()
		if conf.Token == "" {
			return fmt.Errorf("not signed in, run chatcli login first")
		}
		target, err := wsURL(conf.BaseURL, conf.Token)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(ctxOf(cmd), os.Interrupt)
		defer stop()

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", conf.BaseURL, err)
		}
		defer conn.Close()
		context.AfterFunc(ctx, func() { conn.Close() })

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Watching chat events, Ctrl-C to stop.")
		for {
			var event struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := conn.ReadJSON(&event); err != nil {
				if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					return nil
				}
				return fmt.Errorf("connection lost: %w", err)
			}
			fmt.Fprintf(out, "%s %s\n", event.Event, string(event.Data))
		}
	},
}

// wsURL turns the API base URL into the /ws/chat endpoint
func wsURL(baseURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path += "/ws/chat"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}
