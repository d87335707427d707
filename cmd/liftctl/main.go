// Command liftctl runs maintenance tasks against the application database.
package main

import (
	"fmt"
	"liftworks/config"
	"liftworks/database"
	"liftworks/logger"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "liftctl",
	Short:         "Maintenance commands for the parts and training platform",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadConfig()
		return logger.Init(config.AppConfig.AppEnv)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// connect opens the configured database. Migrations run on every connect.
func connect() (*gorm.DB, error) {
	if err := database.ConnectDb(config.AppConfig); err != nil {
		return nil, err
	}
	return database.Database.Db, nil
}

func main() {
	rootCmd.AddCommand(migrateCmd, seedLookupsCmd, importPartsCmd, importQuizCmd, grantSeatsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
