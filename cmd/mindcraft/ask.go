package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/mindcraft-go/config"
	"github.com/becomeliminal/mindcraft-go/npc"
)

var (
	askDescription   string
	askPersonalities []string
	askMotivations   []string
	askMood          string
	askStream        bool
	askCharacters    string

	askCmd = &cobra.Command{
		Use:   "ask CHARACTER INTERACTION",
		Short: "Ask a character of the world something",
		Long:  longAsk,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.addCharacters(ctx, askCharacters); err != nil {
				return err
			}
			character, ok := a.game.NPC(args[0])
			if !ok {
				character, err = a.addCharacter(ctx, config.Character{
					Name:          args[0],
					Description:   askDescription,
					Personalities: askPersonalities,
					Motivations:   askMotivations,
					Mood:          askMood,
				})
				if err != nil {
					return err
				}
			}
			return ask(cmd, character, args[1], a.reactOptions())
		},
	}
)

func ask(cmd *cobra.Command, character *npc.NPC, interaction string, opts npc.ReactOptions) error {
	out := cmd.OutOrStdout()
	if !askStream {
		reaction, err := character.ReactTo(cmd.Context(), interaction, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reaction.Answer)
		return nil
	}

	reply, err := character.ReactToStream(cmd.Context(), interaction, opts)
	if err != nil {
		return err
	}
	defer reply.Close()
	for reply.Next() {
		fmt.Fprint(out, reply.Current())
	}
	fmt.Fprintln(out)
	return reply.Err()
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askDescription, "description", "d", "", "description of the character")
	askCmd.Flags().StringArrayVarP(&askPersonalities, "personality", "p", nil, "personality feature, repeatable. Example: wise")
	askCmd.Flags().StringArrayVarP(&askMotivations, "motivation", "m", nil, "motivation or goal, repeatable. Example: Defender of their realm")
	askCmd.Flags().StringVarP(&askMood, "mood", "o", "", "current mood. Example: angry")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer while it is generated")
	askCmd.Flags().StringVar(&askCharacters, "characters", "", "YAML character sheet (default: npc.characters_file)")
}

var longAsk = `
Creates the character in the world (or takes it from the character sheet)
and prints its answer. The world should already hold lore, see import.

Examples:
  mindcraft ask "Zombie Leader" "Who is Sigmur?" --world TheAgeOfSigmur -p evil -m "Eating human flesh" --mood angry
  mindcraft ask Baker "Any bread left?" --characters characters.yaml --stream
`
