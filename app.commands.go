package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "books-catalog",
	Short:         "Books catalog REST api",
	Long:          "books-catalog serves a small catalog of books and their comments over http.",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the api server",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("books-catalog version %s (commit: %s, built: %s)\n", orDefault(GitTag, "dev"), orDefault(GitCommit, "none"), orDefault(BuildTime, "unknown"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yml", "path to the yaml configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "config.env", "path to an optional dotenv file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	app, err := NewApp(configFile, envFile)
	if err != nil {
		return fmt.Errorf("application failed to initialize: %w", err)
	}
	if err = app.Run(); err != nil {
		return fmt.Errorf("application exited. check logs for more details: %w", err)
	}
	return nil
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
