package main

import (
	"github.com/spf13/cobra"

	"github.com/becomeliminal/mindcraft-go/config"
	"github.com/becomeliminal/mindcraft-go/logging"
)

var logger = logging.New("mindcraft")

var (
	cfgFile   string
	worldFlag string
	logLevel  string

	// cfg is loaded before every subcommand runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "mindcraft",
		Short:         "Characters that remember, know their world and answer in their own voice",
		Long:          longRoot,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(cfgFile); err != nil {
				return err
			}
			if worldFlag != "" {
				cfg.World.Name = worldFlag
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logging.SetLevel(cfg.Log.Level)
			return cfg.Validate()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "TOML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&worldFlag, "world", "w", "", "name of the world, overrides world.name")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

var longRoot = `
mindcraft builds dialogue for non-player characters from three kinds of
knowledge: the lore of their world, their own long-term memories and the
conversation they just had.

Typical session:
  # turn a book into the lore of a world
  mindcraft import book.txt --world TheAgeOfSigmur

  # look up what the world knows
  mindcraft query "Who is Sigmur?" --world TheAgeOfSigmur

  # ask a character
  mindcraft ask "Zombie Leader" "What do you want?" -p evil -m "Eating human flesh" --mood angry

  # serve every character of a sheet over WebSocket
  mindcraft serve --characters characters.yaml
`
