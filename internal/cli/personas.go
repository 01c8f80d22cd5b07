package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
)

func newPersonasCommand(env *cliEnv) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the available personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := persona.NewMemoryStore(persona.Seed())
			items := store.List()
			if kind != "" {
				items = store.ListKind(persona.Kind(kind))
			}
			for _, p := range items {
				marker := ""
				if p.Comedian {
					marker = " (comedian)"
				}
				fmt.Fprintf(env.out, "%-16s %-12s %s%s\n", p.ID, p.Kind, p.Name, marker)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind: philosopher or companion")
	return cmd
}
