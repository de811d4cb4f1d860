package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itohio/tinyinfer/pkg/logger"
)

var cfgFile string

// NewRootCmd builds the tinyinfer command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tinyinfer",
		Short: "CPU inference for PNNX-exported convolutional networks",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			} else {
				viper.SetConfigName("tinyinfer")
				viper.SetConfigType("yaml")
				viper.AddConfigPath(".")
				viper.AddConfigPath("$HOME/.tinyinfer")
			}
			viper.SetEnvPrefix("TINYINFER")
			viper.AutomaticEnv()
			if err := viper.ReadInConfig(); err != nil {
				// a config file is optional; flags and defaults suffice
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return err
				}
			}
			logger.SetDebug(viper.GetBool("debug"))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional config file (yaml)")
	cmd.PersistentFlags().String("manifest", "models.yaml", "model manifest file")
	cmd.PersistentFlags().Bool("debug", false, "log per-operator timing")
	_ = viper.BindPFlag("manifest", cmd.PersistentFlags().Lookup("manifest"))
	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))

	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}
