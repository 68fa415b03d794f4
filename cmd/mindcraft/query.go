package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/lore"
)

var (
	numResults    int
	queryKnownBy  string
	queryContains string
	queryMaxDist  float32

	queryCmd = &cobra.Command{
		Use:   "query TOPIC",
		Short: "Retrieve the lore of the world about a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.game.World().GetLore(cmd.Context(), lore.Query{
				Topic:       args[0],
				K:           numResults,
				KnownBy:     queryKnownBy,
				Contains:    queryContains,
				MaxDistance: queryMaxDist,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, doc := range res.Documents {
				fmt.Fprintf(out, "[%s %.3f] %s\n", res.IDs[i], res.Distances[i], doc)
			}
			if res.Len() == 0 {
				fmt.Fprintln(out, "nothing known about that")
			}
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntVarP(&numResults, "num", "n", 5, "number of results to retrieve")
	queryCmd.Flags().StringVar(&queryKnownBy, "known-by", "", "also include lore only this character knows")
	queryCmd.Flags().StringVar(&queryContains, "contains", "", "only lore containing this text")
	queryCmd.Flags().Float32Var(&queryMaxDist, "max-distance", knowledge.NoThreshold, "cosine distance cut-off")
}
