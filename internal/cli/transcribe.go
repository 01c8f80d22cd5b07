package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-salon/backend/internal/app"
	speechmodel "github.com/zhouzirui/z-salon/backend/internal/model/speech"
	"github.com/zhouzirui/z-salon/backend/internal/service/speech"
)

func newTranscribeCommand(env *cliEnv) *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file with Whisper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.OpenAIClient(env.cfg)
			if err != nil {
				return err
			}
			svc := speech.NewService(client, env.cfg.Speech, nil)

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			resp, err := svc.TranscribeAudio(cmd.Context(), &speechmodel.ASRRequest{
				AudioData: f,
				Filename:  filepath.Base(args[0]),
				Language:  language,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(env.out, resp.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Spoken language, e.g. en or en-US")
	return cmd
}
