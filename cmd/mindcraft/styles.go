package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/mindcraft-go/config"
	"github.com/becomeliminal/mindcraft-go/core"
)

var (
	stylesMood string
	stylesNum  int

	stylesCmd = &cobra.Command{
		Use:   "styles CHARACTER TOPIC",
		Short: "Collect lines of a character from the lore as examples of how it talks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			character, err := a.addCharacter(ctx, config.Character{Name: args[0]})
			if err != nil {
				return err
			}
			n, err := character.ExtractStylesFromWorld(ctx, args[1], stylesNum, core.NewMood(stylesMood))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d %s examples for %s\n", n, core.NewMood(stylesMood).Feature(), args[0])
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(stylesCmd)

	stylesCmd.Flags().StringVarP(&stylesMood, "mood", "o", "", "mood the examples show (default: default)")
	stylesCmd.Flags().IntVarP(&stylesNum, "num", "n", 5, "number of lore passages to collect")
}
