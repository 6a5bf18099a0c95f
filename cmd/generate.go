package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/jsphweid/deepj/chord"
	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/sample"
	"github.com/jsphweid/deepj/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	generateStyle int
	generateSeed  int64
	generateTemp  float64
)

func init() {
	generateCmd.Flags().IntVar(&generateStyle, "style", 0, "style index")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "sampling seed")
	generateCmd.Flags().Float64Var(&generateTemp, "temperature", sample.DefaultTemperature, "sampling temperature")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate [steps]",
	Short: "Generates a composition",
	Long:  `Samples a composition from the checkpoint and writes it as JSON into OUTPUT_PATH.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 4 * constants.NotesPerBar
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrap(err, "steps must be a number")
			}
			steps = n
		}

		comp, err := Generate(cmd.Context(), constants.GetCheckpointPath(), generateStyle, steps, generateSeed, generateTemp)
		if err != nil {
			return err
		}
		path, err := writeComposition(constants.GetOutputDir(), comp)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"path":   path,
			"notes":  comp.NumPlayed(),
			"chords": len(chord.Count(comp)),
		}).Info("wrote composition")
		return nil
	},
}

func Generate(ctx context.Context, checkpoint string, style, steps int, seed int64, temperature float64) (model.Composition, error) {
	net, err := loadCheckpoint(checkpoint)
	if err != nil {
		return model.Composition{}, err
	}
	numStyles := net.Config().NumStyles
	if style < 0 || style >= numStyles {
		return model.Composition{}, errors.Errorf("style must be in [0, %d), got %d", numStyles, style)
	}
	onehot := make([]float32, numStyles)
	onehot[style] = 1

	gen, err := sample.New(net, seed)
	if err != nil {
		return model.Composition{}, err
	}
	gen.Temperature = temperature
	if ctx == nil {
		ctx = context.Background()
	}
	return gen.Generate(ctx, onehot, steps)
}

func writeComposition(dir string, comp model.Composition) (string, error) {
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	data, err := json.Marshal(comp)
	if err != nil {
		return "", errors.Wrap(err, "could not encode composition")
	}
	path := filepath.Join(dir, uuid.New().String()+".json")
	if err := os.WriteFile(path, data, 0666); err != nil {
		return "", errors.Wrap(err, "could not write composition")
	}
	return path, nil
}
