package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Talk to the clinic assistant from a terminal",
	Long: `chatcli drives the clinic chat widget from a terminal: send messages,
browse past sessions, rate replies and watch live chat events.

Settings are read from $HOME/.clinicchat.yaml and CLINICCHAT_* environment
variables (CLINICCHAT_BASE_URL, CLINICCHAT_TOKEN, CLINICCHAT_USER_ID,
CLINICCHAT_LOCALE, CLINICCHAT_LOCATION, CLINICCHAT_DATA_DIR).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file path (default is $HOME/.clinicchat.yaml)")
	flags.BoolP("verbose", "v", false, "enable verbose output")
	flags.String("base-url", "", "clinic chat API base URL")
	flags.String("locale", "", "language of the widget's own notices (en, fr, ar)")
	flags.String("location", "", "position sent with messages as lat,lng")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("locale", flags.Lookup("locale"))
	_ = viper.BindPFlag("location", flags.Lookup("location"))
}

func initConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	viper.SetConfigFile(configPath(home))
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("CLINICCHAT")
	viper.AutomaticEnv()

	viper.SetDefault("base_url", "http://localhost:8080")
	viper.SetDefault("locale", "en")
	viper.SetDefault("data_dir", filepath.Join(home, ".clinicchat", "session"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func configPath(home string) string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(home, ".clinicchat.yaml")
}

// settings is the resolved configuration of one invocation
type settings struct {
	BaseURL  string
	Token    string
	UserID   string
	Locale   string
	Location string
	DataDir  string
	Verbose  bool
}

func currentSettings() settings {
	return settings{
		BaseURL:  viper.GetString("base_url"),
		Token:    viper.GetString("token"),
		UserID:   viper.GetString("user_id"),
		Locale:   viper.GetString("locale"),
		Location: viper.GetString("location"),
		DataDir:  viper.GetString("data_dir"),
		Verbose:  viper.GetBool("verbose"),
	}
}
