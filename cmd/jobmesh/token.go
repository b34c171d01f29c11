package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/jobmesh/config"
	"github.com/hupe1980/jobmesh/server"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Mint a bearer token for the HTTP API",
	Long: `Mints a signed bearer token for the given user id, using the auth secret
and token TTL from the config. The token authenticates requests against a
server running with auth enabled.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := mintToken(cmd, args[0]); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func mintToken(cmd *cobra.Command, userID string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Auth.Secret == "" {
		return fmt.Errorf("no auth secret configured; set auth.secret or %s_AUTH_SECRET", config.DefaultEnvPrefix)
	}

	token, err := server.NewToken(cfg.Auth.Secret, userID, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	fmt.Println(token)

	return nil
}
