package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/dimensions"
	"github.com/printshop-tools/kdpcover/internal/export"
)

func newAssembleCmd() *cobra.Command {
	var flags specFlags
	var params compositor.Params
	var out string

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Assemble a print-ready full-wrap cover PNG",
		Long: `Assemble a full-wrap cover (back, spine, front) at 300 DPI and write it as a
PNG tagged with its print resolution.

Images may be URLs, data URIs or local paths. When --spine-color is omitted
the dominant colour of the front image is used.`,
		Example: `  # 6x9, 300 pages, spine colour from the front image
  kdpcover assemble --front front.png --pages 300 --spine-text "My Book" --out cover.png

  # Cream paper with a back image, interior previews and trim guides
  kdpcover assemble --front front.jpg --back back.jpg --interior p1.png,p2.png \
    --paper cream --pages 120 --guides --out proof.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := newServices(cfg, false)

			params.Dimensions = dimensions.New(cfg.MaxPages).Calculate(flags.spec())
			if params.Spine.Color == "" {
				p := svc.palette.Extract(cmd.Context(), params.Front)
				params.Spine.Color = p.DominantColor
				slog.Info("Using dominant front colour for the spine", "color", p.DominantColor)
			}

			res, err := svc.compositor.Assemble(cmd.Context(), params)
			if err != nil {
				return err
			}
			for _, warning := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
			}

			if err := export.WriteFile(out, res.PNG, dimensions.DPI); err != nil {
				return err
			}
			d := params.Dimensions
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d px, spine %d px)\n", out, d.FullWrapWidthPx, d.FullWrapHeightPx, d.SpineWidthPx)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&params.Front, "front", "", "Front cover image (required)")
	cmd.Flags().StringVar(&params.Back, "back", "", "Back cover image; a blurred front is used when omitted")
	cmd.Flags().StringSliceVar(&params.Interior, "interior", nil, "Interior preview images for the back cover (max 6)")
	cmd.Flags().StringVar(&params.Spine.Text, "spine-text", "", "Spine text, drawn only when the spine is wide enough")
	cmd.Flags().StringVar(&params.Spine.Color, "spine-color", "", "Spine colour as #rrggbb")
	cmd.Flags().StringVar(&params.Title, "title", "", "Title for the generated back cover")
	cmd.Flags().StringVar(&params.Author, "author", "", "Author for the generated back cover")
	cmd.Flags().BoolVar(&params.ShowGuides, "guides", false, "Draw trim and spine guides (proofs only)")
	cmd.Flags().StringVarP(&out, "out", "o", "cover.png", "Output PNG path")

	_ = cmd.MarkFlagRequired("front")

	return cmd
}

func newColorsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "colors <image>",
		Short: "Extract the colour palette of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p := newServices(cfg, false).palette.Extract(cmd.Context(), args[0])
			return writeStructured(cmd.OutOrStdout(), output, p)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")

	return cmd
}
