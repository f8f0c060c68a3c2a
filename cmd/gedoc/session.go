package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/diewo77/gedoc/client"
	"github.com/spf13/cobra"
)

// tokenFile stores the admin bearer token between invocations.
func tokenFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gedoc", "token"), nil
}

func loadToken() string {
	if t := os.Getenv("GEDOC_TOKEN"); t != "" {
		return t
	}
	path, err := tokenFile()
	if err != nil {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func saveToken(token string) (string, error) {
	path, err := tokenFile()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func newClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	lang, _ := cmd.Flags().GetString("lang")
	opts := []client.Option{client.WithToken(loadToken())}
	if lang != "" {
		opts = append(opts, client.WithLanguage(lang))
	}
	return client.New(server, opts...)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// explain turns API errors into one readable line, with field details.
func explain(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Details) == 0 {
		return err
	}
	parts := make([]string, 0, len(apiErr.Details))
	for field, code := range apiErr.Details {
		parts = append(parts, field+": "+code)
	}
	return fmt.Errorf("%w (%s)", err, strings.Join(parts, ", "))
}
