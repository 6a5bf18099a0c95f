package cmd

import (
	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/network"
	"github.com/jsphweid/deepj/weights"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	initSeed      int64
	initHead      string
	initTimeSteps int
)

func init() {
	initCmd.Flags().Int64Var(&initSeed, "seed", 0, "weight initialization seed")
	initCmd.Flags().StringVar(&initHead, "head", network.NotesHead.String(), "output heads: notes or notes+style")
	initCmd.Flags().IntVar(&initTimeSteps, "time-steps", constants.SeqLen, "window length")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates a freshly initialized checkpoint",
	Long:  `Creates a freshly initialized checkpoint at CHECKPOINT_PATH.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		head, err := network.ParseHead(initHead)
		if err != nil {
			return err
		}
		cfg := network.DefaultConfig()
		cfg.Head = head
		cfg.TimeSteps = initTimeSteps
		return InitCheckpoint(constants.GetCheckpointPath(), cfg, initSeed)
	},
}

// InitCheckpoint builds the network once so every parameter exists, then
// saves the weights together with cfg.
func InitCheckpoint(path string, cfg network.Config, seed int64) error {
	store := weights.NewStore(seed)
	cfg.BatchSize = 1
	net, err := network.New(cfg, store, network.Infer)
	if err != nil {
		return err
	}
	if err := network.SaveConfig(store, cfg); err != nil {
		return err
	}
	if err := store.Save(path); err != nil {
		return errors.Wrap(err, "could not write checkpoint")
	}

	log.WithFields(log.Fields{
		"path":   path,
		"params": net.NumParams(),
		"head":   cfg.Head,
	}).Info("created checkpoint")
	return nil
}

// loadCheckpoint reads the weights at path and builds an inference network
// with a batch size of 1 over them.
func loadCheckpoint(path string) (*network.Network, error) {
	store, err := weights.Load(path)
	if err != nil {
		return nil, err
	}
	cfg, err := network.ConfigFrom(store)
	if err != nil {
		return nil, err
	}
	cfg.BatchSize = 1
	return network.New(cfg, store, network.Infer)
}
