package cli

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmatencio/s3c/gLog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tingold/gotiff"
	"github.com/tingold/gotiff/internal/cache"
	"golang.org/x/image/draw"
)

var (
	output   string
	allPages bool
	scale    float64
	crop     string

	decodeCmd = &cobra.Command{
		Use:   "decode <input>",
		Short: "Decode a TIFF file, URL or s3 object to PNG",
		Long: `Decode the first page of a baseline TIFF image, or every page with --all-pages,
and write it as PNG. With --all-pages, page i is written to <output>-<i>.png.`,
		Args: cobra.ExactArgs(1),
		RunE: runDecode,
	}
)

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVarP(&output, "output", "o", "", "output PNG file")
	decodeCmd.Flags().BoolVarP(&allPages, "all-pages", "a", false, "decode every page")
	decodeCmd.Flags().Float64VarP(&scale, "scale", "s", 1, "resize factor applied after cropping")
	decodeCmd.Flags().StringVar(&crop, "crop", "", "pixel window minX,minY,maxX,maxY")
	decodeCmd.Flags().String("cache-dir", "", "directory of the decoded PNG cache")
	decodeCmd.MarkFlagRequired("output")
	viper.BindPFlag("cache.dir", decodeCmd.Flags().Lookup("cache-dir"))
}

func runDecode(cmd *cobra.Command, args []string) error {
	if scale <= 0 {
		return fmt.Errorf("--scale must be positive, got %v", scale)
	}
	window, err := parseCrop(crop)
	if err != nil {
		return err
	}

	input, err := loadInput(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var c *cache.Cache
	if dir := viper.GetString("cache.dir"); dir != "" {
		if c, err = cache.Open(dir, viper.GetDuration("cache.ttl")); err != nil {
			return err
		}
		defer c.Close()
	}

	// A cache hit skips decoding.
	if c != nil && !allPages {
		if png, ok, err := c.Get(cache.Key(input, variant(0))); err == nil && ok {
			gLog.Info.Printf("Cache hit for %s", args[0])
			return writeFile(output, png)
		}
	}

	opts := decodeOptions()
	var images []*gotiff.Image
	if allPages {
		images, err = gotiff.DecodeAll(input, opts)
	} else {
		var img *gotiff.Image
		img, err = gotiff.Decode(input, opts)
		images = []*gotiff.Image{img}
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", args[0], err)
	}
	outputs := []string{output}
	if allPages {
		outputs = make([]string, len(images))
		for i := range images {
			outputs[i] = pageOutput(output, i)
		}
	}

	for i, img := range images {
		png, err := render(img, window)
		if err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
		if c != nil {
			if err := c.Set(cache.Key(input, variant(i)), png); err != nil {
				gLog.Warning.Printf("Failed to cache page %d: %v", i, err)
			}
		}
		if err := writeFile(outputs[i], png); err != nil {
			return err
		}
		gLog.Info.Printf("Wrote %dx%d page %d to %s", img.Width, img.Height, i, outputs[i])
	}
	return nil
}

// render crops, scales and encodes one image.
func render(img *gotiff.Image, window *orb.Bound) ([]byte, error) {
	var err error
	if window != nil {
		if img, err = img.Crop(*window); err != nil {
			return nil, err
		}
	}
	if scale != 1 {
		img = scaleImage(img, scale)
	}

	var buf bytes.Buffer
	if err := img.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// scaleImage resamples img by factor with a Catmull-Rom filter.
func scaleImage(img *gotiff.Image, factor float64) *gotiff.Image {
	w := max(int(float64(img.Width)*factor+0.5), 1)
	h := max(int(float64(img.Height)*factor+0.5), 1)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	src := img.NRGBA()
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return &gotiff.Image{
		Width:       w,
		Height:      h,
		Data:        dst.Pix,
		Tags:        img.Tags,
		Strings:     img.Strings,
		Diagnostics: img.Diagnostics,
	}
}

// variant describes the options that change the rendered output of page.
func variant(page int) string {
	return fmt.Sprintf("page=%d;scale=%g;crop=%s;strict=%t;limit=%d",
		page, scale, crop, viper.GetBool("decode.strict"), viper.GetInt("decode.limit_pixels"))
}

// parseCrop parses "minX,minY,maxX,maxY". An empty string means no crop.
func parseCrop(s string) (*orb.Bound, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("--crop wants minX,minY,maxX,maxY, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("--crop value %q: %w", p, err)
		}
		v[i] = f
	}
	return &orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

// pageOutput inserts the page index before the extension of name.
func pageOutput(name string, page int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), page, ext)
}

func writeFile(name string, data []byte) error {
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
