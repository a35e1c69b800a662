package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tingold/gotiff"
)

var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Print a summary of every page",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	pages, err := readPages(cmd, args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Pages: %d\n", len(pages))
	for _, p := range pages {
		width, _ := p.Tags.First(gotiff.FieldImageWidth)
		height, _ := p.Tags.First(gotiff.FieldImageLength)
		fmt.Fprintf(w, "Page %d: %dx%d, bits per sample %v, %s\n",
			p.Index, width, height, p.Tags[gotiff.FieldBitsPerSample], support(p.Tags))
		for _, field := range []gotiff.Field{gotiff.FieldMake, gotiff.FieldModel, gotiff.FieldSoftware, gotiff.FieldDateTime} {
			if s, ok := p.Strings[field]; ok {
				fmt.Fprintf(w, "  %s: %s\n", field, s)
			}
		}
		if n := len(p.Diagnostics); n > 0 {
			fmt.Fprintf(w, "  %d diagnostics\n", n)
		}
	}
	return nil
}

// support describes whether a page with tags can be decoded.
func support(tags gotiff.Tags) string {
	format, err := tags.PixelFormat()
	if feature, ok := gotiff.IsUnsupported(err); ok {
		return "unsupported " + feature
	}
	return format.String()
}
