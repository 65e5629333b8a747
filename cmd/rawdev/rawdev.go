package main

import (
	"flag"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/lightroast/rawdev/pkg/develop"
	"github.com/lightroast/rawdev/pkg/rawio"
)

var (
	fVerbosity int
	fMode      string
	fSettings  string
	fJob       string
	fConfig    string
	fOutput    string
	fDumpHDR   string
	fProgress  bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fMode, "mode", "full", "render path: preview (fast, half-size) or full")
	flag.StringVar(&fSettings, "settings", "", "settings file with the develop adjustments")
	flag.StringVar(&fJob, "job", "cli", "job id stamped on progress events")
	flag.StringVar(&fConfig, "config", "", "yaml file overriding the pipeline config")
	flag.StringVar(&fOutput, "o", "out.png", "output file (.png or .tif)")
	flag.StringVar(&fDumpHDR, "dumphdr", "", "also write the linear image as a Radiance .hdr")
	flag.BoolVar(&fProgress, "progress", false, "log progress events as they happen")
	flag.Parse()

	log.Printf("rawdev starting\n")
}

func main() {
	if flag.NArg() != 1 {
		log.Fatal("usage: rawdev [flags] mosaic.pgm")
	}
	path := flag.Arg(0)

	d := develop.NewDeveloper(rawio.PlainUnpacker{})
	d.Config.Verbosity = fVerbosity

	if fConfig != "" {
		b, err := os.ReadFile(fConfig)
		if err != nil {
			log.Fatalf("read config '%s': %v", fConfig, err)
		}
		if d.Config, err = develop.NewConfigFromYaml(b); err != nil {
			log.Fatalf("parse config '%s': %v", fConfig, err)
		}
		d.Config.Verbosity = fVerbosity
	}
	if fVerbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", d.Config.AsYaml())
	}
	if fProgress {
		d.Sink = develop.LogSink
	}

	req := develop.Request{Path: path, Job: fJob, Mode: develop.Full}
	if fMode == "preview" {
		req.Mode = develop.Preview
	}
	if fSettings != "" {
		req.Settings = settingsText(fSettings)
	}

	if fDumpHDR != "" {
		dumpLinear(d, req)
	}

	img, err := d.Develop(req)
	if err != nil {
		log.Fatal(err)
	}
	writeImage(img, fOutput)
}

func settingsText(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read settings '%s': %v", path, err)
	}
	return string(b)
}

// dumpLinear re-runs just the decode so the pre-pack linear state can
// be inspected; wasteful, but it's a debugging path.
func dumpLinear(d *develop.Developer, req develop.Request) {
	frame, err := d.Unpacker.Unpack(req.Path, req.Mode == develop.Preview)
	if err != nil {
		log.Printf("dumphdr: unpack failed, skipping: %v", err)
		return
	}
	r, g, b, err := d.Bridge.Demosaic(frame)
	if err != nil {
		log.Printf("dumphdr: demosaic failed, skipping: %v", err)
		return
	}
	im := &develop.LinearImage{Width: frame.Width, Height: frame.Height, R: r, G: g, B: b}
	if err := im.WriteHDR(fDumpHDR); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", fDumpHDR)
}

func writeImage(img *develop.PackedImage, filename string) {
	fh, err := os.Create(filename)
	if err != nil {
		log.Fatalf("open+w '%s': %v", filename, err)
	}
	defer fh.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		err = tiff.Encode(fh, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(fh, img)
	}
	if err != nil {
		log.Fatalf("encode '%s': %v", filename, err)
	}
	log.Printf("wrote %s", filename)
}
