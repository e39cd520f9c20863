package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/control-theory/vlexplore/internal/tui"
)

// Build variables - set by ldflags during build
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

// Config struct for application configuration
type Config struct {
	ServerURL    string        `mapstructure:"server-url"`
	AccountID    string        `mapstructure:"account-id"`
	ProjectID    string        `mapstructure:"project-id"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Query        string        `mapstructure:"query"`
	Limit        int           `mapstructure:"limit"`
	Since        time.Duration `mapstructure:"since"`
	View         string        `mapstructure:"view"`
	HitsStep     time.Duration `mapstructure:"hits-step"`
	GroupBy      []string      `mapstructure:"group-by"`
	FieldsLimit  int           `mapstructure:"fields-limit"`
	ContextLines int           `mapstructure:"context-lines"`
	Tail         bool          `mapstructure:"tail"`
	Files        []string      `mapstructure:"files"`
	Follow       bool          `mapstructure:"follow"`
	LogFile      string        `mapstructure:"log-file"`
	LogLevel     string        `mapstructure:"log-level"`
	TestMode     bool          `mapstructure:"test-mode"`
	ConfigFile   string        `mapstructure:"config"`
}

// Validate rejects settings the explorer cannot run with
func (c Config) Validate() error {
	if _, err := tui.ParseView(c.View); err != nil {
		return err
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.FieldsLimit <= 0 {
		return fmt.Errorf("fields-limit must be positive, got %d", c.FieldsLimit)
	}
	if c.ContextLines <= 0 {
		return fmt.Errorf("context-lines must be positive, got %d", c.ContextLines)
	}
	if c.Since < 0 || c.HitsStep < 0 {
		return errors.New("since and hits-step cannot be negative")
	}
	if len(c.Files) == 0 && c.ServerURL == "" {
		return errors.New("either --server-url or --file is required")
	}
	if c.Follow && len(c.Files) == 0 {
		return errors.New("--follow requires --file")
	}
	if c.Tail && len(c.Files) > 0 {
		return errors.New("--tail needs a server, use --follow with --file")
	}
	return nil
}

var (
	cfg     Config
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "vlexplore",
		Short: "Terminal explorer for VictoriaLogs",
		Long: `vlexplore - query VictoriaLogs from your terminal.

Browse results grouped by stream, as JSON or as a table, chart hit counts per
group, open the surrounding stream context of any record and live tail new logs.
Exported NDJSON files can be explored offline with --file.`,
		Example: `  # Query a local VictoriaLogs
  vlexplore --query 'error'

  # Last 15 minutes from a remote server, starting on the hits chart
  vlexplore --server-url https://logs.example.com --since 15m --view hits

  # Group hits by two fields
  vlexplore --group-by level --group-by app

  # Live tail
  vlexplore --query '_stream:{app="api"}' --tail

  # Explore an export offline and follow it as it grows
  vlexplore -f "exports/*.ndjson" --follow`,
		SilenceUsage: true,
		RunE:         runApp,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information about vlexplore.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vlexplore - VictoriaLogs explorer\n")
			fmt.Printf("  Version:    %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Built:      %s\n", buildTime)
			fmt.Printf("  Go version: %s\n", goVersion)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Root command flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/vlexplore/config.yml)")
	rootCmd.Flags().String("server-url", "http://localhost:9428", "VictoriaLogs base URL")
	rootCmd.Flags().String("account-id", "0", "Tenant AccountID header")
	rootCmd.Flags().String("project-id", "0", "Tenant ProjectID header")
	rootCmd.Flags().String("user", "", "Basic auth user")
	rootCmd.Flags().String("password", "", "Basic auth password")
	rootCmd.Flags().StringP("query", "q", "*", "Initial LogsQL query")
	rootCmd.Flags().IntP("limit", "l", 1000, "Maximum number of logs per query")
	rootCmd.Flags().Duration("since", time.Hour, "Query the logs of this last period (0 disables the time filter)")
	rootCmd.Flags().String("view", "group", "Initial view: group, json, table or hits")
	rootCmd.Flags().Duration("hits-step", 0, "Hits bucket width (0 picks one from the period)")
	rootCmd.Flags().StringSlice("group-by", []string{"_stream"}, "Fields to group hits by")
	rootCmd.Flags().Int("fields-limit", 5, "Number of top groups before the rest is folded into other")
	rootCmd.Flags().Int("context-lines", 10, "Initial stream context page size")
	rootCmd.Flags().Bool("tail", false, "Start live tailing the query")
	rootCmd.Flags().StringSliceP("file", "f", []string{}, "Explore NDJSON exports instead of a server (files or globs, can specify multiple)")
	rootCmd.Flags().Bool("follow", false, "Follow the files like 'tail -f'")
	rootCmd.Flags().String("log-file", "", "Write logs to this file (rotated)")
	rootCmd.Flags().String("log-level", "info", "Log level")
	rootCmd.Flags().BoolP("test-mode", "t", false, "Run in test mode (works without TTY)")
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")

	// Bind flags to viper
	for _, name := range []string{
		"server-url", "account-id", "project-id", "user", "password",
		"query", "limit", "since", "view", "hits-step", "group-by",
		"fields-limit", "context-lines", "tail", "follow",
		"log-file", "log-level", "test-mode",
	} {
		viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}
	viper.BindPFlag("files", rootCmd.Flags().Lookup("file"))

	// Add version command
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find XDG config directory
		home, err := os.UserHomeDir()
		if err != nil {
			log.Printf("Error finding home directory: %v", err)
		} else {
			viper.AddConfigPath(home + "/.config/vlexplore")
			viper.SetConfigType("yaml")
			viper.SetConfigName("config")
		}
	}

	// Support environment variables
	viper.SetEnvPrefix("VLEXPLORE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err == nil {
		log.Printf("Using config file: %s", viper.ConfigFileUsed())
	}

	// Unmarshal config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
