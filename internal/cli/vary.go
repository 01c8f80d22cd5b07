package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-salon/backend/internal/app"
	"github.com/zhouzirui/z-salon/backend/internal/service/imagegen"
)

func newVaryCommand(env *cliEnv) *cobra.Command {
	var (
		count  int
		size   string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "vary <image.png>",
		Short: "Generate variations of a PNG image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.OpenAIClient(env.cfg)
			if err != nil {
				return err
			}
			svc := imagegen.NewService(client, env.cfg.Images, nil)

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			data, err := imagegen.ReadImage(f)
			f.Close()
			if err != nil {
				return err
			}

			images, err := svc.Vary(cmd.Context(), imagegen.Request{Image: data, N: count, Size: size})
			if err != nil {
				return err
			}

			paths, err := writeVariations(outDir, strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])), images)
			for _, p := range paths {
				fmt.Fprintln(env.out, p)
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of variations, 1-10 (default IMAGE_VARIATION_COUNT)")
	cmd.Flags().StringVarP(&size, "size", "s", "", "256x256, 512x512 or 1024x1024")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the generated files")
	return cmd
}

// writeVariations stores each image as <base>-variation-N.<ext>.
func writeVariations(dir, base string, images []imagegen.Image) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(images))
	for i, img := range images {
		ext := ".png"
		if m := mimetype.Lookup(img.ContentType); m != nil && m.Extension() != "" {
			ext = m.Extension()
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-variation-%d%s", base, i+1, ext))
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
