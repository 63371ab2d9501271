package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thenielthevis/capstone-project-sub006/internal/bootstrap"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/config"
	"github.com/thenielthevis/capstone-project-sub006/pkg/auth"
)

// Token-specific flag values.
var (
	tokenUserID string
	tokenRoles  []string
	tokenTTL    time.Duration
	keygenOut   string
)

// tokenCmd mints a development JWT.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed JWT for development",
	Long: `Sign a token with JWT_PRIVATE_KEY_FILE for calling riskd locally:

  riskctl token --user 6f1c... --role patient
  riskctl token --role service --ttl 24h`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

// keygenCmd writes an RSA key pair for JWT signing.
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an RSA key pair for token signing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		priv, pub, err := auth.GenerateKeyPair()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(keygenOut, 0o700); err != nil {
			return fmt.Errorf("failed to create %s: %w", keygenOut, err)
		}
		privPath := filepath.Join(keygenOut, "jwt.key")
		pubPath := filepath.Join(keygenOut, "jwt.pub")
		if err := os.WriteFile(privPath, priv, 0o600); err != nil {
			return fmt.Errorf("failed to write private key: %w", err)
		}
		if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
			return fmt.Errorf("failed to write public key: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", privPath, pubPath)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user ID carried in the token (random when empty)")
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "role", []string{auth.RolePatient}, "roles to grant; repeatable")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")

	keygenCmd.Flags().StringVar(&keygenOut, "out", "./certs", "directory for jwt.key and jwt.pub")
	tokenCmd.AddCommand(keygenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	userID := uuid.New()
	if tokenUserID != "" {
		parsed, err := uuid.Parse(tokenUserID)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		userID = parsed
	}

	authCfg := config.Load().Auth
	if authCfg.PrivateKeyFile == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_FILE is required to sign tokens")
	}
	authCfg.Enabled = true

	svc, err := bootstrap.TokenService(authCfg, tokenTTL)
	if err != nil {
		return err
	}
	token, err := svc.GenerateToken(userID, tokenRoles)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
