package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itohio/tinyinfer/pkg/runtime"
)

func newInfoCmd() *cobra.Command {
	var modelName string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the operators of a model",
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
			graph.Build(entry.Input, entry.Output)

			for _, op := range graph.Ops() {
				if op.OutOperand != nil {
					cmd.Printf("%-24s %-20s -> %v\n", op.Type, op.Name, op.OutOperand.Shape)
				} else {
					cmd.Printf("%-24s %-20s\n", op.Type, op.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "model name from the manifest")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}
