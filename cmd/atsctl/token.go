package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/config"
)

type tokenOptions struct {
	subject string
	role    string
	email   string
	name    string
	ttl     time.Duration
	secret  string
}

func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed API token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.subject, "sub", "", "Subject (user id)")
	cmd.Flags().StringVar(&opts.role, "role", string(auth.RoleCandidate), "Role: candidate, recruiter or admin")
	cmd.Flags().StringVar(&opts.email, "email", "", "Optional email claim")
	cmd.Flags().StringVar(&opts.name, "name", "", "Optional name claim")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "Token lifetime (default 24h)")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "Signing secret (overrides JWT_SECRET)")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

func runToken(cmd *cobra.Command, opts *tokenOptions) error {
	role, err := auth.ParseRole(opts.role)
	if err != nil {
		return err
	}

	cfg := config.Load()
	secret := opts.secret
	if secret == "" {
		secret = cfg.JWTSecret
	}
	signer, err := auth.NewSigner(secret, cfg.IsProduction())
	if err != nil {
		return err
	}

	claims := auth.Claims{
		Email:            opts.email,
		Name:             opts.name,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: opts.subject},
	}
	if opts.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(opts.ttl))
	}
	token, err := signer.Sign(claims)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
