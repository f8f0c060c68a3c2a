package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gedoc",
		Short:        "GEDOC command line client",
		Version:      Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("server", envOr("GEDOC_SERVER", "http://localhost:8080"), "GEDOC server URL")
	root.PersistentFlags().String("lang", "", "Language of server messages (fr, en)")
	root.PersistentFlags().BoolP("json", "j", false, "Output as JSON")

	root.AddCommand(typesCmd())
	root.AddCommand(generateCmd())
	root.AddCommand(submitCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(downloadCmd())
	root.AddCommand(adminCmd())
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
