package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/flysch/matchd/internal/model"
)

var seedFlags struct {
	file        string
	concurrency int
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load schools from a YAML fixture file into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		schools, err := loadSeedFile(seedFlags.file)
		if err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return eris.Wrap(err, "seed: migrate")
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(seedFlags.concurrency)
		for i := range schools {
			school := &schools[i]
			g.Go(func() error {
				if err := st.UpsertSchool(ctx, school); err != nil {
					return eris.Wrapf(err, "seed: upsert %s", school.ID)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("seed complete", zap.Int("schools", len(schools)))
		return nil
	},
}

// loadSeedFile reads a YAML file of school records. The YAML is decoded
// through the JSON field names, so fixture keys match the API payloads.
func loadSeedFile(path string) ([]model.School, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "seed: read file")
	}

	var intermediate []map[string]any
	if err := yaml.Unmarshal(raw, &intermediate); err != nil {
		return nil, eris.Wrap(err, "seed: parse yaml")
	}

	bridged, err := json.Marshal(intermediate)
	if err != nil {
		return nil, eris.Wrap(err, "seed: bridge yaml")
	}

	var schools []model.School
	if err := json.Unmarshal(bridged, &schools); err != nil {
		return nil, eris.Wrap(err, "seed: decode schools")
	}

	for i := range schools {
		if schools[i].ID == "" {
			return nil, eris.Errorf("seed: school %d (%s) has no id", i, schools[i].Name)
		}
	}

	return schools, nil
}

func init() {
	seedCmd.Flags().StringVar(&seedFlags.file, "file", "", "YAML file of school records")
	seedCmd.Flags().IntVar(&seedFlags.concurrency, "concurrency", 4, "concurrent upserts")
	seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}
