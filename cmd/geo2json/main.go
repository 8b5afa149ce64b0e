package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/woozymasta/geoview/internal/logger"
	"github.com/woozymasta/geoview/internal/reader"
	"github.com/woozymasta/geoview/internal/render"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Logger logger.Logger    `group:"Logger options"`
	S3     reader.S3Options `group:"S3 options"`

	Input    string        `short:"i" long:"in" description:"Shapefile directory, .shp path, GeoJSON file or URL" required:"true"`
	Output   string        `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format   string        `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" choice:"view" default:"json"`
	Label    string        `short:"l" long:"label" description:"Label template for view output, e.g. '{NAME}'"`
	Timeout  time.Duration `short:"t" long:"timeout" description:"Timeout for remote sources" default:"15s"`
	Summary  bool          `short:"s" long:"summary" description:"Print collection summary to stderr"`
	Metadata bool          `short:"m" long:"metadata" description:"Print ancillary shapefile metadata to stderr"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	s3, err := reader.NewS3Client(opts.S3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring S3: %v\n", err)
		os.Exit(1)
	}

	src, err := reader.Open(opts.Input, reader.NewSourceFetcher(reader.NewHTTPClient(opts.Timeout), s3))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening input: %v\n", err)
		os.Exit(1)
	}

	log.Debug().
		Str("input", src.Location()).
		Str("format", string(src.Format())).
		Msg("Reading input")

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	fc, err := src.Read(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", src.Format(), err)
		os.Exit(1)
	}

	if opts.Summary {
		b := fc.Bound()
		fmt.Fprintf(os.Stderr, "Format:     %s\n", fc.Format())
		fmt.Fprintf(os.Stderr, "CRS:        %s\n", fc.CRS())
		fmt.Fprintf(os.Stderr, "Features:   %d\n", fc.Len())
		fmt.Fprintf(os.Stderr, "Bounds:     %g,%g,%g,%g\n", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
		fmt.Fprintf(os.Stderr, "Properties: %s\n", strings.Join(fc.PropertyKeys(), ", "))
	}

	if opts.Metadata {
		printMetadata(src)
	}

	// marshal
	var outputData []byte
	switch opts.Format {
	case "yaml":
		doc, derr := fc.Document()
		if derr != nil {
			err = derr
			break
		}
		outputData, err = yaml.Marshal(doc)
	case "view":
		view, rerr := render.Render(fc, render.Style{LabelTemplate: opts.Label})
		if rerr != nil {
			err = rerr
			break
		}
		outputData, err = json.MarshalIndent(view, "", "  ")
	default:
		outputData, err = json.MarshalIndent(fc, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d features to %s (format: %s)\n", fc.Len(), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}

func printMetadata(src reader.Source) {
	shp, ok := src.(reader.ShapefileSource)
	if !ok {
		fmt.Fprintln(os.Stderr, "Metadata: only available for shapefile bundles")
		return
	}

	files, err := reader.AncillaryMetadata(shp.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading metadata: %v\n", err)
		return
	}

	for _, name := range reader.AncillaryNames(files) {
		f := files[name]
		fmt.Fprintf(os.Stderr, "%s (%s)\n", f.Name, f.Kind)
		switch {
		case f.ParseError != "":
			fmt.Fprintf(os.Stderr, "  unparsed: %s\n", f.ParseError)
		case f.Document != nil:
			if title := f.Document.Find("idinfo", "citation", "citeinfo", "title"); title != nil {
				fmt.Fprintf(os.Stderr, "  title: %s\n", title.Text())
			}
		default:
			fmt.Fprintf(os.Stderr, "  %s\n", strings.TrimSpace(f.Text))
		}
	}
}
