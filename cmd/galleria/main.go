package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "galleria",
	Short:   "Photo-gallery backend with signup/login and signed-URL uploads",
	Long: `Galleria is a small web backend providing user signup/login and an
authenticated photo-gallery upload/list API backed by a key-value
credential store and an object store.`,
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path(s) (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "credential store: dynamo, sqlite, memory (env: GALLERIA_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "sqlite database path (env: GALLERIA_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("db-table", "", "dynamodb table name (env: GALLERIA_DATABASE_TABLE)")
	rootCmd.PersistentFlags().String("bucket", "", "image bucket name (env: GALLERIA_STORAGE_BUCKET)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
