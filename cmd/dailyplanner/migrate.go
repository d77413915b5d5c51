package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"routine-planner/internal/config"
)

func addMigrate(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Seed and upgrade the routine catalog for every user.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a, err := newApp(cfg, logNotifier)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			users, err := a.users.ListAll(ctx)
			if err != nil {
				return err
			}
			failed := 0
			for i := range users {
				if err := a.routines.EnsureRoutines(ctx, &users[i]); err != nil {
					log.Printf("[warn] migrate user=%d: %v", users[i].ID, err)
					failed++
				}
			}
			fmt.Printf("Migrated %d users, %d failed.\n", len(users)-failed, failed)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}
