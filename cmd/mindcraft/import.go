package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/mindcraft-go/lore/splitter"
)

var (
	splitterKind  string
	maxUnits      int
	overlap       int
	importKnownBy []string

	importCmd = &cobra.Command{
		Use:   "import BOOK",
		Short: "Split a book and add it to the lore of the world",
		Long:  longImport,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.game.BookToWorld(cmd.Context(), args[0], splitterKind, maxUnits, overlap, importKnownBy...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d chunks of %s to %s\n", n, args[0], cfg.World.Name)
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&splitterKind, "splitter", splitter.KindSentence, "sentence or token")
	importCmd.Flags().IntVar(&maxUnits, "max-units", 3, "sentences or tokens per chunk")
	importCmd.Flags().IntVar(&overlap, "overlap", 1, "sentences or tokens repeated from the previous chunk")
	importCmd.Flags().StringSliceVar(&importKnownBy, "known-by", nil, "characters who know this book (default: everybody)")
}

var longImport = `
Reads a text file, splits it into chunks and stores every chunk as lore of
the world. Import the same book twice and it is stored twice.

Examples:
  mindcraft import sigmur.txt --world TheAgeOfSigmur
  mindcraft import diary.txt --world TheAgeOfSigmur --known-by "Zombie Leader"
  mindcraft import sigmur.txt --world TheAgeOfSigmur --splitter token --max-units 256 --overlap 32
`
