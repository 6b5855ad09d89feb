package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/flysch/matchd/internal/model"
)

var matchFlags struct {
	budget float64
	goals  []string
	lat    float64
	lng    float64
	radius float64
	user   string
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run a one-shot match against the school directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		inputs := model.MatchInputs{MaxBudget: matchFlags.budget}
		for _, g := range matchFlags.goals {
			inputs.TrainingGoals = append(inputs.TrainingGoals, model.ProgramType(g))
		}
		if matchFlags.radius > 0 {
			inputs.Location = &model.GeoFilter{
				Lat:      matchFlags.lat,
				Lng:      matchFlags.lng,
				RadiusKm: matchFlags.radius,
			}
		}

		session, err := env.Engine.Run(cmd.Context(), matchFlags.user, inputs)
		if err != nil {
			return eris.Wrap(err, "match run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(session)
	},
}

func init() {
	matchCmd.Flags().Float64Var(&matchFlags.budget, "budget", 0, "maximum training budget in USD")
	matchCmd.Flags().StringSliceVar(&matchFlags.goals, "goals", nil, "training goals (PPL, IR, CPL, CFI, CFII, MEI, ATP)")
	matchCmd.Flags().Float64Var(&matchFlags.lat, "lat", 0, "search center latitude")
	matchCmd.Flags().Float64Var(&matchFlags.lng, "lng", 0, "search center longitude")
	matchCmd.Flags().Float64Var(&matchFlags.radius, "radius", 0, "search radius in km (requires --lat and --lng)")
	matchCmd.Flags().StringVar(&matchFlags.user, "user", "", "user id to record the session under")
	matchCmd.MarkFlagRequired("budget")
	matchCmd.MarkFlagRequired("goals")
	rootCmd.AddCommand(matchCmd)
}
