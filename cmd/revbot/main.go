package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container
)

// rootCmd is the base command. Without a subcommand it runs the server.
var rootCmd = &cobra.Command{
	Use:   "revbot",
	Short: "Gitea pull request review bot",
	Long: `revbot receives Gitea pull request webhooks, asks an OpenAI-compatible
model to review the diff and posts the result as a pull request review.

Configuration is read from the environment; see "revbot serve --help".`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}
