package cmd

import (
	"fmt"

	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/network"
	"github.com/jsphweid/deepj/util"
	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <dataset>",
	Short: "Creates a report",
	Long:  `Evaluates the checkpoint on a gob encoded []model.Batch without dropout and prints loss and note statistics.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := Report(constants.GetCheckpointPath(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("batches: %v\n", r.Batches)
		fmt.Printf("mean loss: %.5f\n", r.MeanLoss)
		fmt.Printf("played in targets: %.4f\n", r.TargetPlayed)
		fmt.Printf("mean predicted played: %.4f\n", r.PredictedPlayed)
		fmt.Printf("articulated in targets: %.4f\n", r.TargetArticulated)
		fmt.Printf("mean predicted articulated: %.4f\n", r.PredictedArticulated)
		return nil
	},
}

type EvalReport struct {
	Batches              int
	MeanLoss             float64
	TargetPlayed         float64
	PredictedPlayed      float64
	TargetArticulated    float64
	PredictedArticulated float64
}

func Report(checkpoint, dataset string) (EvalReport, error) {
	var report EvalReport
	batches, err := util.ReadBinary[[]model.Batch](dataset)
	if err != nil {
		return report, err
	}
	if len(batches) == 0 {
		return report, errors.Errorf("dataset %v is empty", dataset)
	}

	store, err := weights.Load(checkpoint)
	if err != nil {
		return report, err
	}
	cfg, err := network.ConfigFrom(store)
	if err != nil {
		return report, err
	}
	cfg.BatchSize = batches[0].Size
	net, err := network.New(cfg, store, network.Infer)
	if err != nil {
		return report, err
	}

	var values float64
	for i, b := range batches {
		if b.Target == nil {
			return report, errors.Errorf("batch %d has no target", i)
		}
		pred, loss, err := net.Evaluate(b)
		if err != nil {
			return report, errors.Wrapf(err, "batch %d", i)
		}
		report.MeanLoss += float64(loss)
		for j := 0; j < len(pred.Notes); j += 2 {
			report.PredictedPlayed += float64(pred.Notes[j])
			report.PredictedArticulated += float64(pred.Notes[j+1])
			report.TargetPlayed += float64(b.Target[j])
			report.TargetArticulated += float64(b.Target[j+1])
		}
		values += float64(len(pred.Notes) / 2)
	}

	report.Batches = len(batches)
	report.MeanLoss /= float64(len(batches))
	report.PredictedPlayed /= values
	report.PredictedArticulated /= values
	report.TargetPlayed /= values
	report.TargetArticulated /= values
	return report, nil
}
