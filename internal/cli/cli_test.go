package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tingold/gotiff/internal/cache"
	xtiff "golang.org/x/image/tiff"
)

// resetFlags restores every flag of cmd and its children to its default so
// commands can be executed more than once in a test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// run executes the root command with args and returns its standard output.
func run(c *qt.C, args ...string) (string, error) {
	c.Cleanup(func() { resetFlags(rootCmd) })
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeFixture encodes img as an uncompressed TIFF in a temporary directory.
func writeFixture(c *qt.C, img image.Image) string {
	var buf bytes.Buffer
	c.Assert(xtiff.Encode(&buf, img, nil), qt.IsNil)
	name := filepath.Join(c.TempDir(), "in.tif")
	c.Assert(os.WriteFile(name, buf.Bytes(), 0o644), qt.IsNil)
	return name
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 60), B: 200, A: 255})
		}
	}
	return img
}

func readPNG(c *qt.C, name string) image.Image {
	f, err := os.Open(name)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	img, err := png.Decode(f)
	c.Assert(err, qt.IsNil)
	return img
}

func TestParseCrop(t *testing.T) {
	c := qt.New(t)

	b, err := parseCrop("")
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.IsNil)

	b, err = parseCrop("1, 2,3,4.5")
	c.Assert(err, qt.IsNil)
	c.Assert(*b, qt.Equals, orb.Bound{Min: orb.Point{1, 2}, Max: orb.Point{3, 4.5}})

	_, err = parseCrop("1,2,3")
	c.Assert(err, qt.ErrorMatches, `--crop wants .*`)
	_, err = parseCrop("1,2,x,4")
	c.Assert(err, qt.ErrorMatches, `--crop value "x": .*`)
}

func TestPageOutput(t *testing.T) {
	c := qt.New(t)
	c.Assert(pageOutput("out.png", 0), qt.Equals, "out-0.png")
	c.Assert(pageOutput("dir/out.png", 3), qt.Equals, "dir/out-3.png")
	c.Assert(pageOutput("out", 1), qt.Equals, "out-1")
}

func TestDecodeCommand(t *testing.T) {
	c := qt.New(t)
	src := gradient(3, 2)
	input := writeFixture(c, src)
	out := filepath.Join(c.TempDir(), "out.png")

	_, err := run(c, "decode", input, "-o", out)
	c.Assert(err, qt.IsNil)

	got := readPNG(c, out)
	c.Assert(got.Bounds(), qt.Equals, image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			c.Assert(color.NRGBAModel.Convert(got.At(x, y)), qt.Equals, src.At(x, y))
		}
	}
}

func TestDecodeCommandCropAndScale(t *testing.T) {
	c := qt.New(t)
	input := writeFixture(c, gradient(4, 4))
	out := filepath.Join(c.TempDir(), "out.png")

	_, err := run(c, "decode", input, "-o", out, "--crop", "1,1,3,3", "--scale", "2")
	c.Assert(err, qt.IsNil)
	c.Assert(readPNG(c, out).Bounds(), qt.Equals, image.Rect(0, 0, 4, 4))
}

func TestDecodeCommandBadScale(t *testing.T) {
	c := qt.New(t)
	input := writeFixture(c, gradient(1, 1))

	_, err := run(c, "decode", input, "-o", filepath.Join(c.TempDir(), "out.png"), "--scale", "0")
	c.Assert(err, qt.ErrorMatches, `--scale must be positive.*`)
}

func TestDecodeCommandRequiresOutput(t *testing.T) {
	c := qt.New(t)
	input := writeFixture(c, gradient(1, 1))

	_, err := run(c, "decode", input)
	c.Assert(err, qt.ErrorMatches, `.*"output".*`)
}

func TestDecodeCommandMissingInput(t *testing.T) {
	c := qt.New(t)

	_, err := run(c, "decode", filepath.Join(c.TempDir(), "missing.tif"), "-o", filepath.Join(c.TempDir(), "out.png"))
	c.Assert(err, qt.IsNotNil)
}

func TestDecodeCommandAllPages(t *testing.T) {
	c := qt.New(t)
	input := writeFixture(c, gradient(2, 2))
	out := filepath.Join(c.TempDir(), "page.png")

	_, err := run(c, "decode", input, "-o", out, "--all-pages")
	c.Assert(err, qt.IsNil)

	c.Assert(readPNG(c, pageOutput(out, 0)).Bounds(), qt.Equals, image.Rect(0, 0, 2, 2))
	_, err = os.Stat(out)
	c.Assert(os.IsNotExist(err), qt.IsTrue)
}

func TestDecodeCommandCache(t *testing.T) {
	c := qt.New(t)
	input := writeFixture(c, gradient(2, 3))
	dir := c.TempDir()
	first := filepath.Join(dir, "first.png")
	second := filepath.Join(dir, "second.png")
	cacheDir := filepath.Join(dir, "cache")

	_, err := run(c, "decode", input, "-o", first, "--cache-dir", cacheDir)
	c.Assert(err, qt.IsNil)
	resetFlags(rootCmd)
	_, err = run(c, "decode", input, "-o", second, "--cache-dir", cacheDir)
	c.Assert(err, qt.IsNil)

	a, err := os.ReadFile(first)
	c.Assert(err, qt.IsNil)
	b, err := os.ReadFile(second)
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.DeepEquals, a)

	store, err := cache.Open(cacheDir, 0)
	c.Assert(err, qt.IsNil)
	defer store.Close()
	n, err := store.Len()
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 1)
}

func TestTagsCommand(t *testing.T) {
	c := qt.New(t)
	input := writeFixture(c, image.NewGray(image.Rect(0, 0, 5, 7)))

	out, err := run(c, "tags", input)
	c.Assert(err, qt.IsNil)

	var pages []struct {
		Page   int                 `json:"page"`
		Offset uint32              `json:"offset"`
		Tags   map[string][]uint32 `json:"tags"`
	}
	c.Assert(json.Unmarshal([]byte(out), &pages), qt.IsNil)
	c.Assert(pages, qt.HasLen, 1)
	c.Assert(pages[0].Page, qt.Equals, 0)
	c.Assert(pages[0].Offset, qt.Not(qt.Equals), uint32(0))
	c.Assert(pages[0].Tags["imageWidth"], qt.DeepEquals, []uint32{5})
	c.Assert(pages[0].Tags["imageLength"], qt.DeepEquals, []uint32{7})
	c.Assert(pages[0].Tags["bitsPerSample"], qt.DeepEquals, []uint32{8})
}

func TestInfoCommand(t *testing.T) {
	c := qt.New(t)
	input := writeFixture(c, gradient(3, 2))

	out, err := run(c, "info", input)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Pages: 1")
	c.Assert(out, qt.Contains, "Page 0: 3x2, bits per sample [8 8 8 8], rgba")
}

func TestTagsCommandStdoutHoldsOnlyJSON(t *testing.T) {
	c := qt.New(t)
	input := writeFixture(c, image.NewGray(image.Rect(0, 0, 2, 2)))
	cfgFile := filepath.Join(c.TempDir(), "config.yaml")
	c.Cleanup(func() { viper.SetConfigFile("") })
	c.Assert(os.WriteFile(cfgFile, []byte("http:\n  timeout: 10s\n"), 0o644), qt.IsNil)

	// Loggers bind os.Stdout when the command initializes.
	stdout, err := os.CreateTemp(c.TempDir(), "stdout")
	c.Assert(err, qt.IsNil)
	orig := os.Stdout
	os.Stdout = stdout
	out, err := run(c, "tags", input, "--config", cfgFile)
	os.Stdout = orig
	c.Assert(err, qt.IsNil)

	var pages []map[string]any
	c.Assert(json.Unmarshal([]byte(out), &pages), qt.IsNil)

	logged, err := os.ReadFile(stdout.Name())
	c.Assert(err, qt.IsNil)
	c.Assert(string(logged), qt.Not(qt.Contains), "Using config file")
}
