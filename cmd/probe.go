package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mangamark/internal/config"
	"mangamark/internal/convert"
)

var probeCmd = &cobra.Command{
	Use:   "probe [converter]",
	Short: "Check that the ImageMagick converter runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		converter := convert.DefaultConverter
		if cfg, err := config.Load(""); err == nil {
			cfg.ApplyEnv()
			converter = cfg.MagickPath
		}
		if len(args) == 1 {
			converter = args[0]
		}

		version, err := convert.Probe(cmd.Context(), converter)
		if err != nil {
			return fmt.Errorf("converter check failed: %w", err)
		}
		fmt.Fprintf(os.Stdout, "%s %s\n", infoLabelStyle.Render("converter:"), infoValueStyle.Render(converter))
		fmt.Fprintf(os.Stdout, "%s %s\n", infoLabelStyle.Render("version:"), infoValueStyle.Render(version))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
