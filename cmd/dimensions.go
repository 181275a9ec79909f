package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/printshop-tools/kdpcover/internal/dimensions"
	"github.com/printshop-tools/kdpcover/internal/models"
)

// specFlags are the BookSpec flags shared by dimensions and assemble
type specFlags struct {
	trim  string
	pages int
	paper string
	bleed bool
}

func (f *specFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.trim, "trim", dimensions.DefaultTrimSize, "Trim size, a catalog name or WxH in inches")
	cmd.Flags().IntVar(&f.pages, "pages", 200, "Interior page count")
	cmd.Flags().StringVar(&f.paper, "paper", string(models.PaperWhite), "Paper type (white, cream, color)")
	cmd.Flags().BoolVar(&f.bleed, "bleed", true, "Include 0.125\" bleed on the outer edges")
}

func (f *specFlags) spec() models.BookSpec {
	return models.BookSpec{
		TrimSize:     f.trim,
		PageCount:    f.pages,
		PaperType:    models.PaperType(f.paper),
		IncludeBleed: f.bleed,
	}
}

func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q (supported: yaml, json)", format)
	}
}

func newDimensionsCmd() *cobra.Command {
	var flags specFlags
	var output string

	cmd := &cobra.Command{
		Use:   "dimensions",
		Short: "Calculate full-wrap cover dimensions",
		Long: `Calculate KDP paperback cover geometry for a trim size, page count and
paper type. Page counts outside the supported range are clamped.`,
		Example: `  # 6x9 on white paper, 300 pages
  kdpcover dimensions --trim 6x9 --pages 300

  # Cream paper without bleed, as JSON
  kdpcover dimensions --trim 5.5x8.5 --pages 120 --paper cream --bleed=false -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			spec := flags.spec()
			d := dimensions.New(cfg.MaxPages).Calculate(spec)
			if d.PageCount != spec.PageCount {
				fmt.Fprintf(cmd.ErrOrStderr(), "page count %d clamped to %d\n", spec.PageCount, d.PageCount)
			}
			if !dimensions.SpineTextViable(d.SpineWidthIn) {
				fmt.Fprintf(cmd.ErrOrStderr(), "spine is %.4f\" wide, too narrow for spine text\n", d.SpineWidthIn)
			}
			return writeStructured(cmd.OutOrStdout(), output, d)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")

	return cmd
}

func newTrimSizesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trim-sizes",
		Short: "List the supported trim sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tWIDTH\tHEIGHT\tPOPULAR")
			for _, ts := range dimensions.Catalog() {
				popular := ""
				if ts.Popular {
					popular = "yes"
				}
				fmt.Fprintf(tw, "%s\t%g\"\t%g\"\t%s\n", ts.Name, ts.WidthIn, ts.HeightIn, popular)
			}
			return tw.Flush()
		},
	}
}
