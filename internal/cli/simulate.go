package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-salon/backend/internal/app"
	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
	"github.com/zhouzirui/z-salon/backend/internal/service/dialogue"
)

func newSimulateCommand(env *cliEnv) *cobra.Command {
	var (
		first, second, topic string
		rounds, words        int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Stage a dialogue between two philosophers",
		Long: `Runs an opening, a number of rounds and a closing between two philosophers.
Each turn pair is printed as soon as it is generated. Missing participants or
topic are asked for interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), env.cfg, nil)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("rounds") {
				rounds = env.cfg.Dialogue.DefaultRounds
			}
			if err := checkRounds(a.Dialogue, rounds); err != nil {
				return err
			}
			in := bufio.NewReader(env.in)
			philosophers := a.Personas.ListKind(persona.KindPhilosopher)

			firstP, err := pickPhilosopher(in, env, a.Personas, philosophers, first, "", "Choose the first philosopher:")
			if err != nil {
				return err
			}
			secondP, err := pickPhilosopher(in, env, a.Personas, philosophers, second, personaID(a.Personas, firstP), "Choose the second philosopher:")
			if err != nil {
				return err
			}

			if strings.TrimSpace(topic) == "" {
				topic, err = readLine(in, env.out, "Topic: ")
				if err != nil {
					return errNoSelection
				}
			}
			if !cmd.Flags().Changed("words") {
				words = env.cfg.Dialogue.WordLimit
			}

			req := dialogue.Request{
				First:     firstP,
				Second:    secondP,
				Topic:     topic,
				Rounds:    rounds,
				WordLimit: words,
			}

			printer := NewPrinter(env.out, NewRenderer())
			printer.Heading(fmt.Sprintf("%s and %s on %q, %d rounds", req.First.Name, req.Second.Name, req.Topic, req.Rounds))

			var transcript *dialogue.Transcript
			transcript, err = a.Dialogue.Simulate(cmd.Context(), req, func(pair dialogue.TurnPair) error {
				printer.Pair(&dialogue.Transcript{First: req.First, Second: req.Second}, pair)
				return nil
			})
			var stepErr *dialogue.StepError
			if errors.As(err, &stepErr) {
				printer.Heading(fmt.Sprintf("Stopped after %d of %d pairs.", len(transcript.Pairs), req.Rounds+2))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&first, "first", "", "First philosopher (ID, seeded name or any custom name)")
	cmd.Flags().StringVar(&second, "second", "", "Second philosopher (ID, seeded name or any custom name)")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Topic of conversation")
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 0, "Middle rounds (default 4, capped by DIALOGUE_MAX_ROUNDS)")
	cmd.Flags().IntVarP(&words, "words", "w", 0, "Word limit per utterance, 0 for none (default DIALOGUE_WORD_LIMIT)")
	return cmd
}

// checkRounds reports the configured cap before any prompt is read.
func checkRounds(orch *dialogue.Orchestrator, rounds int) error {
	if rounds < 0 || rounds > orch.MaxRounds() {
		return fmt.Errorf("rounds must be between 0 and %d", orch.MaxRounds())
	}
	return nil
}

// pickPhilosopher resolves ref the same way the API does, so custom names are
// accepted. Without ref a numbered menu is shown.
func pickPhilosopher(in *bufio.Reader, env *cliEnv, store persona.Store, options []persona.Persona, ref, exclude, title string) (dialogue.Participant, error) {
	if strings.TrimSpace(ref) != "" {
		return dialogue.ResolveParticipant(store, ref)
	}
	p, err := choosePersona(in, env.out, title, options, exclude)
	if err != nil {
		return dialogue.Participant{}, err
	}
	return dialogue.Participant{Name: p.Name, Comedian: p.Comedian}, nil
}

// personaID returns the seeded ID behind a participant, if any.
func personaID(store persona.Store, p dialogue.Participant) string {
	if found, ok := persona.Resolve(store, p.Name); ok {
		return found.ID
	}
	return ""
}
