package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"shellmind/internal/config"
	"shellmind/internal/embedding"
	"shellmind/internal/store"
	"shellmind/internal/ux"
)

// runStatus prints the effective configuration and store statistics
// without starting a session.
func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Println(ux.PlanStyle.Render(fmt.Sprintf("%s %s", cfg.Name, cfg.Version)))
	fmt.Printf("  oracle:    %s @ %s\n", cfg.Oracle.Model, cfg.Oracle.BaseURL)
	fmt.Printf("  embedding: %s (%s, %d dims)\n", cfg.Embedding.Backend, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	fmt.Printf("  vision:    %s @ %s\n", cfg.Vision.Model, cfg.Vision.Endpoint)
	fmt.Printf("  workdir:   %s\n", cfg.Execution.WorkingDirectory)
	fmt.Printf("  window:    %d messages\n", cfg.Memory.MaxSessionMessages)
	fmt.Printf("  replans:   %d max\n", cfg.ReplanCeiling())

	engine, err := embedding.NewEngine(embedding.Config{
		Backend:    cfg.Embedding.Backend,
		Model:      cfg.Embedding.Model,
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.EmbeddingAPIKey(),
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("embedding engine: %w", err)
	}

	st, err := store.NewLocalStore(cfg.Store.DatabasePath, engine)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	fmt.Println(ux.PlanStyle.Render("Store"))
	fmt.Printf("  path: %s\n", st.Path())
	if st.HasVectorExtension() {
		fmt.Println("  vector extension: " + ux.SuccessStyle.Render("available"))
	} else {
		fmt.Println("  vector extension: " + ux.MutedStyle.Render("absent, scanning in Go"))
	}

	stats, err := st.Stats()
	if err != nil {
		return fmt.Errorf("store stats: %w", err)
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, stats[k])
	}
	return nil
}
