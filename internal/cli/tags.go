package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tingold/gotiff"
)

var tagsCmd = &cobra.Command{
	Use:   "tags <input>",
	Short: "Print the tag table of every page as JSON",
	Long: `Walk every directory of a TIFF file without decoding pixels and print its
numeric tags, string tags and diagnostics as JSON. Pages with unsupported
features are listed too.`,
	Args: cobra.ExactArgs(1),
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

// pageTags is the JSON form of one page.
type pageTags struct {
	Page        int                     `json:"page"`
	Offset      uint32                  `json:"offset"`
	Tags        gotiff.Tags             `json:"tags"`
	Strings     map[gotiff.Field]string `json:"strings,omitempty"`
	Diagnostics []string                `json:"diagnostics,omitempty"`
}

// readPages walks input in metadata-only mode.
func readPages(cmd *cobra.Command, input string) ([]*gotiff.Page, error) {
	buf, err := loadInput(cmd.Context(), input)
	if err != nil {
		return nil, err
	}
	tr, err := gotiff.NewTIFFReaderWithFilter(buf, decodeOptions(), true)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", input, err)
	}
	defer tr.Close()

	pages := make([]*gotiff.Page, tr.PageCount())
	for i := range pages {
		if pages[i], err = tr.GetPage(i); err != nil {
			return nil, err
		}
	}
	return pages, nil
}

func runTags(cmd *cobra.Command, args []string) error {
	pages, err := readPages(cmd, args[0])
	if err != nil {
		return err
	}

	out := make([]pageTags, 0, len(pages))
	for _, p := range pages {
		pt := pageTags{
			Page:    p.Index,
			Offset:  p.Offset,
			Tags:    p.Tags,
			Strings: p.Strings,
		}
		for _, d := range p.Diagnostics {
			pt.Diagnostics = append(pt.Diagnostics, d.String())
		}
		out = append(out, pt)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
