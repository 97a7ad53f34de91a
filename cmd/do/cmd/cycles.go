package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/repcycle/internal/config"
	"github.com/templui/repcycle/internal/db"
	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/repository"
	"github.com/templui/repcycle/internal/service"
	"github.com/templui/repcycle/internal/validation"
)

func CyclesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Inspect and advance a user's microcycles",
	}

	var email string
	cmd.PersistentFlags().StringVar(&email, "email", "", "email of the user")
	_ = cmd.MarkPersistentFlagRequired("email")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the current microcycle and its goals",
			RunE: func(c *cobra.Command, args []string) error {
				return withEngine(c, email, func(engine *service.CycleEngine, goals repository.GoalRepository, userID string) error {
					state, err := engine.State(c.Context(), userID)
					if err != nil {
						return err
					}
					fmt.Println(state)
					if !state.Initialized() {
						return nil
					}

					list, err := goals.Goals(c.Context(), repository.GoalFilter{
						UserID:     userID,
						Microcycle: state.Current,
						OrderBy:    repository.GoalOrderID,
					})
					if err != nil {
						return err
					}
					for _, g := range list {
						status := "active"
						if !g.Active {
							status = "paused"
						}
						fmt.Printf("  %-30s %dx%d  %-6s %v\n", g.Exercise, g.Sets, g.Reps, status, []string(g.Categories))
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "advance",
			Short: "Copy the current microcycle into the next one",
			RunE: func(c *cobra.Command, args []string) error {
				return withEngine(c, email, func(engine *service.CycleEngine, _ repository.GoalRepository, userID string) error {
					state, cloned, err := engine.Advance(c.Context(), userID)
					if err != nil {
						return err
					}
					fmt.Printf("advanced to microcycle %d (%d goals)\n", state.Current, len(cloned))
					return nil
				})
			},
		},
	)
	return cmd
}

func withEngine(c *cobra.Command, email string, fn func(engine *service.CycleEngine, goals repository.GoalRepository, userID string) error) error {
	cfg := config.Load()
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)

	user, err := repository.NewUserRepository(database).ByEmail(c.Context(), validation.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("user %q: %w", email, err)
	}

	goals := repository.NewGoalRepository(database)
	engine := service.NewCycleEngine(goals, nil, metrics.NewManager("cli", nil))
	return fn(engine, goals, user.ID)
}
