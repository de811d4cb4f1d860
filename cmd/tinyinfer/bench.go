package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itohio/tinyinfer/pkg/runtime"
	"github.com/itohio/tinyinfer/pkg/tensor"
)

func newBenchCmd() *cobra.Command {
	var (
		modelName string
		rounds    int
		warmup    int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure forward latency of a model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, err := LoadManifest(viper.GetString("manifest"))
			if err != nil {
				return err
			}
			entry, err := manifest.Find(modelName)
			if err != nil {
				return err
			}

			graph := runtime.NewGraph(entry.Param, entry.Bin)
			buildStart := time.Now()
			graph.Build(entry.Input, entry.Output)
			cmd.Printf("build: %v\n", time.Since(buildStart))

			input := tensor.New(entry.InputSize.Channels, entry.InputSize.Height, entry.InputSize.Width)
			input.Rand()
			inputs := []*tensor.Tensor{input}

			for i := 0; i < warmup; i++ {
				graph.Forward(inputs, false)
			}

			var total time.Duration
			best := time.Duration(1<<63 - 1)
			for i := 0; i < rounds; i++ {
				start := time.Now()
				graph.Forward(inputs, false)
				elapsed := time.Since(start)
				total += elapsed
				if elapsed < best {
					best = elapsed
				}
			}
			cmd.Printf("rounds: %d  avg: %v  best: %v\n", rounds, total/time.Duration(rounds), best)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "model name from the manifest")
	cmd.Flags().IntVar(&rounds, "rounds", 10, "measured forward passes")
	cmd.Flags().IntVar(&warmup, "warmup", 2, "unmeasured warmup passes")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}
