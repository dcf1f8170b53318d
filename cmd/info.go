package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mangamark/internal/compose"
	"mangamark/internal/tui"
	"mangamark/pkg/imgutil"
)

var infoCmd = &cobra.Command{
	Use:   "info <watermark>",
	Short: "Show the size and format of a watermark image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		wm, err := compose.LoadWatermark(path)
		if err != nil {
			return err
		}
		kind, err := imgutil.SniffFile(path)
		if err != nil {
			return err
		}

		size := wm.Size()
		fmt.Fprintf(os.Stdout, "%s\n", infoFileStyle.Render(path))
		fmt.Fprintf(os.Stdout, "  %s %s\n", infoLabelStyle.Render("size:"), infoValueStyle.Render(fmt.Sprintf("%dx%d px", size.X, size.Y)))
		fmt.Fprintf(os.Stdout, "  %s %s\n", infoLabelStyle.Render("format:"), infoValueStyle.Render(kind.String()))
		return nil
	},
}

var (
	infoFileStyle  = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	infoLabelStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	infoValueStyle = lipgloss.NewStyle().Foreground(tui.ColorInk)
)

func init() {
	rootCmd.AddCommand(infoCmd)
}
