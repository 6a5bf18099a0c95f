package cmd

import (
	"strconv"
	"time"

	"github.com/bep/debounce"
	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/network"
	"github.com/jsphweid/deepj/util"
	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	trainLearnRate float64
	trainSaveEvery int
)

func init() {
	trainCmd.Flags().Float64Var(&trainLearnRate, "lr", network.DefaultLearnRate, "Adam learn rate")
	trainCmd.Flags().IntVar(&trainSaveEvery, "save-every", 100, "save the checkpoint every n steps (0 only saves at the end)")
	rootCmd.AddCommand(trainCmd)
}

var trainCmd = &cobra.Command{
	Use:   "train <dataset> [steps]",
	Short: "Trains the checkpoint",
	Long: `Trains the checkpoint at CHECKPOINT_PATH on a gob encoded []model.Batch.
Every batch needs a target and the same size. Runs one pass over the dataset
unless a step count is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var steps int
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrap(err, "steps must be a number")
			}
			steps = n
		}
		return Train(constants.GetCheckpointPath(), args[0], steps, trainLearnRate, trainSaveEvery)
	},
}

func Train(checkpoint, dataset string, steps int, learnRate float64, saveEvery int) error {
	batches, err := util.ReadBinary[[]model.Batch](dataset)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return errors.Errorf("dataset %v is empty", dataset)
	}
	if steps <= 0 {
		steps = len(batches)
	}

	store, err := weights.Load(checkpoint)
	if err != nil {
		return err
	}
	cfg, err := network.ConfigFrom(store)
	if err != nil {
		return err
	}
	cfg.BatchSize = batches[0].Size
	trainer, err := network.NewTrainer(cfg, store, learnRate)
	if err != nil {
		return err
	}

	progress := debounce.New(time.Second)
	var last float32
	for i := 0; i < steps; i++ {
		loss, err := trainer.Step(batches[i%len(batches)])
		if err != nil {
			return errors.Wrapf(err, "training step %d", i)
		}
		step := i + 1
		last = loss
		progress(func() {
			log.WithFields(log.Fields{"step": step, "of": steps, "loss": loss}).Info("training")
		})

		if saveEvery > 0 && step%saveEvery == 0 {
			if err := store.Save(checkpoint); err != nil {
				return err
			}
		}
	}

	// debounced lines trail by a second, so the last step is logged here
	log.WithFields(log.Fields{"step": steps, "of": steps, "loss": last}).Info("training")

	if err := store.Save(checkpoint); err != nil {
		return err
	}
	log.WithFields(log.Fields{"steps": steps, "path": checkpoint}).Info("saved checkpoint")
	return nil
}
