package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mangamark",
	Short: "mangamark - stamp watermarks onto long-strip comic pages",
	Long: "mangamark places a repeating watermark on tall, scrolling comic pages, " +
		"choosing flat background spots so artwork is not covered. It works chapter " +
		"by chapter and can pack each chapter into an archive.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}
