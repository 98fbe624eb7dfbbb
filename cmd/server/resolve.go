package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/allergenai/backend/config"
	"github.com/allergenai/backend/internal/domain"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <product-code> <language>",
	Short: "Resolve one product and print the description payload",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResolve(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], args[1])
	},
}

func runResolve(ctx context.Context, out io.Writer, cfg *config.Config, code, language string) error {
	env, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	summary, err := env.Resolver.Resolve(ctx, &domain.ResolveRequest{ProductCode: code, Language: language})
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			_ = writeJSON(out, map[string]string{"error": "NOT_FOUND"})
		}
		return err
	}

	return writeJSON(out, summary)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
