package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/demo"
	"github.com/querydeck/querydeck/internal/relation"
)

func newRelationsCmd() *cobra.Command {
	var demoMode bool

	cmd := &cobra.Command{
		Use:   "relations <project>",
		Short: "Print the join edges inferred for a project's tables",
		Long: `Fetch a project's schema and print every join edge the relationship
inference produces. Edges are advisory name matches, shown in the order the
SQL synthesizer would consider them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelations(cmd, args[0], demoMode)
		},
	}

	cmd.Flags().BoolVar(&demoMode, "demo", false, "Inspect the seeded demo tables instead of a real backend")
	return cmd
}

func runRelations(cmd *cobra.Command, project string, demoMode bool) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil && !demoMode {
		return fmt.Errorf("load config: %w", err)
	}

	var src catalog.Source
	if demoMode {
		engine, err := demo.New()
		if err != nil {
			return fmt.Errorf("start demo engine: %w", err)
		}
		defer engine.Close()
		src = engine
	} else {
		src = catalog.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cat, err := catalog.Load(ctx, src, project)
	if err != nil {
		return err
	}

	edges := relation.Infer(cat.Tables)
	if len(edges) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no join edges inferred")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FROM\tCOLUMN\tTO\tCOLUMN")
	for _, e := range edges {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.FromTable, e.FromColumn, e.ToTable, e.ToColumn)
	}
	return w.Flush()
}
