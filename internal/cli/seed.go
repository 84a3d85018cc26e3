package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tillworks/till/internal/config"
	"github.com/tillworks/till/internal/pos"
	"github.com/tillworks/till/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a demo catalog",
		Long: `Seed the database with a small demo catalog of categories and items.

Intended for local development; running it twice creates duplicate names.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runSeed(opts *SeedOptions) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	s, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer s.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	catalog := map[string][]struct {
		name  string
		price string
	}{
		"Coffee": {
			{"Espresso", "2.50"},
			{"Flat White", "3.50"},
			{"Cappuccino", "3.80"},
		},
		"Pastry": {
			{"Croissant", "2.20"},
			{"Cinnamon Roll", "3.00"},
		},
		"Cold Drinks": {
			{"Sparkling Water", "1.80"},
			{"Fresh Orange Juice", "4.20"},
		},
	}

	var items int
	for categoryName, entries := range catalog {
		category := pos.Category{
			ID:        uuid.New(),
			Name:      categoryName,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateCategory(ctx, category); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("seed category %q", categoryName), err)
		}

		for _, entry := range entries {
			price, err := decimal.NewFromString(entry.price)
			if err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("parse price for %q", entry.name), err)
			}
			item := pos.Item{
				ID:         uuid.New(),
				Name:       entry.name,
				Price:      price,
				CategoryID: category.ID,
				InStock:    true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.CreateItem(ctx, item); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("seed item %q", entry.name), err)
			}
			items++
		}
	}

	fmt.Printf("seeded %d categories, %d items into %s\n", len(catalog), items, cfg.Database)
	return nil
}
