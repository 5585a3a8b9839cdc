package main

import (
	"alcyxob/composer/internal/config"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// @title Media Composer API
// @version 1.0
// @description Compositions of uploaded images and videos with text and shape overlays.
// @host localhost:5000
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token from `composer token`.
func main() {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "composer",
		Short:         "Media composition backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	setupFlags(rootCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	})
	rootCmd.AddCommand(newTokenCommand())
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("address", defaults.GetString("server.address"), "HTTP listen address")
	flags.String("frontend-url", defaults.GetString("server.frontend_url"), "Allowed CORS origin of the editor frontend")
	flags.String("database-uri", defaults.GetString("database.uri"), "MongoDB connection URI")
	flags.String("database-name", defaults.GetString("database.name"), "MongoDB database name")
	flags.String("storage-driver", defaults.GetString("storage.driver"), "File storage driver (local, s3)")
	flags.String("storage-path", defaults.GetString("storage.local_path"), "Upload directory for the local driver")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.Bool("debug", defaults.GetBool("debug.enabled"), "Expose the debug file listing endpoint")

	bindFlag(cmd, "server.address", "address")
	bindFlag(cmd, "server.frontend_url", "frontend-url")
	bindFlag(cmd, "database.uri", "database-uri")
	bindFlag(cmd, "database.name", "database-name")
	bindFlag(cmd, "storage.driver", "storage-driver")
	bindFlag(cmd, "storage.local_path", "storage-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "debug.enabled", "debug")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
