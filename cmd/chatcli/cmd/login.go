package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/linesmerrill/clinic-chat-api/chat"
)

// terminal hooks, replaced in tests
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (read from stdin when omitted)")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the token in the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		in := bufio.NewReader(cmd.InOrStdin())
		if email == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Email: ")
			line, err := in.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read email: %w", err)
			}
			email = strings.TrimSpace(line)
		}
		if password == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			p, err := promptPassword(cmd, in)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = p
		}

		conf := currentSettings()
		tok, err := chat.NewHTTPGateway(conf.BaseURL).Login(ctxOf(cmd), email, password)
		if err != nil {
			return err
		}

		viper.Set("token", tok.Token)
		viper.Set("user_id", tok.UserID)
		path := viper.ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
		if err := viper.WriteConfigAs(path); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nSigned in as %s (%s).\n", email, tok.Role)
		return nil
	},
}

// promptPassword reads without echo when stdin is a terminal, and falls back
// to a plain line read otherwise
func promptPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && isTerminal(int(f.Fd())) {
		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err == nil {
			return strings.TrimRight(string(b), "\r\n"), nil
		}
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
