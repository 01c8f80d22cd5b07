package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-salon/backend/internal/app"
	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
	chatservice "github.com/zhouzirui/z-salon/backend/internal/service/chat"
)

const resetCommand = "/reset"

func newChatCommand(env *cliEnv) *cobra.Command {
	var personaRef string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to a companion persona",
		Long: `Starts a conversation with a companion persona. Every reply is generated
from the full history. Type /reset to clear the history, /quit or Ctrl-D to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), env.cfg, nil)
			if err != nil {
				return err
			}
			in := bufio.NewReader(env.in)

			p, ok := persona.Resolve(a.Personas, personaRef)
			if !ok {
				if personaRef != "" {
					return fmt.Errorf("unknown persona %q", personaRef)
				}
				p, err = choosePersona(in, env.out, "Choose who to talk to:", a.Personas.ListKind(persona.KindCompanion), "")
				if err != nil {
					return err
				}
			}

			return runChat(cmd, env, a.Chat, p, in)
		},
	}

	cmd.Flags().StringVarP(&personaRef, "persona", "p", "", "Persona ID or name")
	return cmd
}

func runChat(cmd *cobra.Command, env *cliEnv, svc *chatservice.Service, p persona.Persona, in *bufio.Reader) error {
	ctx := cmd.Context()
	session, err := svc.CreateSession(ctx, p.ID)
	if err != nil {
		return err
	}

	printer := NewPrinter(env.out, NewRenderer())
	if p.Greeting != "" {
		printer.Reply(p.Name, chatservice.Reply{Content: p.Greeting})
	}

	for {
		line, err := readLine(in, env.out, "> ")
		if errors.Is(err, io.EOF) {
			return nil
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case resetCommand:
			if _, err := svc.Reset(ctx, session.ID); err != nil {
				return err
			}
			printer.Heading("History cleared.")
			continue
		}

		reply, err := svc.Send(ctx, session.ID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			printer.Heading("Error: " + err.Error())
			continue
		}
		printer.Reply(p.Name, reply)
	}
}
