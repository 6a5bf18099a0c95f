package cmd

import (
	"fmt"

	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/network"
	"github.com/jsphweid/deepj/weights"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [checkpoint]",
	Short: "Inspects a checkpoint",
	Long:  `Prints the config and every parameter of a checkpoint (CHECKPOINT_PATH by default).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := constants.GetCheckpointPath()
		if len(args) == 1 {
			path = args[0]
		}
		return inspect(path)
	},
}

func inspect(path string) error {
	store, err := weights.Load(path)
	if err != nil {
		return err
	}
	cfg, err := network.ConfigFrom(store)
	if err != nil {
		return err
	}

	fmt.Printf("seed: %v\n", store.Seed())
	fmt.Printf("config: %+v\n", cfg)
	for _, name := range store.Names() {
		t, _ := store.Lookup(name)
		vals := toFloat64(t.Data().([]float32))
		fmt.Printf("%v %v min=%.4f max=%.4f mean=%.4f\n",
			name, t.Shape(), floats.Min(vals), floats.Max(vals), floats.Sum(vals)/float64(len(vals)))
	}
	return nil
}

func toFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
