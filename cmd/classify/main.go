// Command classify runs one image through the classifier session from the
// command line, the same way the web page does.
//
//	classify -file hand.png
//	classify -file az://signs/hand.png
//	classify -url https://example.com/hand.jpg
//	classify -info
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"go-sign-classifier/internal/config"
	"go-sign-classifier/internal/container"
	"go-sign-classifier/internal/logger"
	"go-sign-classifier/internal/session"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "image file path, or az://container/blob")
	imageURL := fs.String("url", "", "image URL")
	info := fs.Bool("info", false, "print the prediction service's model info")
	base := fs.String("base", "", "prediction service base URL (overrides PREDICT_API_BASE_URL)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	modes := 0
	for _, set := range []bool{*file != "", *imageURL != "", *info} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(stderr, "exactly one of -file, -url or -info is required")
		fs.Usage()
		return exitUsage
	}

	if *base != "" {
		os.Setenv("PREDICT_API_BASE_URL", *base)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}

	// Keep stdout for the result
	logger.Logger.SetOutput(os.Stderr)
	gin.SetMode(gin.ReleaseMode)
	c, err := container.NewContainer(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitError
	}
	defer c.Shutdown()

	ctx := context.Background()
	if *info {
		return printModelInfo(ctx, c, stdout, stderr)
	}

	ctrl := c.Sessions().Create(ctx)
	if *file != "" {
		f, err := c.FileSources().Open(ctx, *file)
		if err != nil {
			fmt.Fprintf(stderr, "open %s: %v\n", *file, err)
			return exitError
		}
		err = ctrl.SelectFile(ctx, f)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
	} else if err := ctrl.LoadURL(ctx, *imageURL); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	ctrl.Wait()

	if rec := ctrl.Snapshot(); rec.InputError() != "" {
		fmt.Fprintln(stderr, rec.InputError())
		return exitError
	}

	if err := ctrl.Submit(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	ctrl.Wait()
	return printResult(ctrl.Snapshot(), stdout, stderr)
}

func printModelInfo(ctx context.Context, c *container.Container, stdout, stderr io.Writer) int {
	modelInfo, err := c.Sessions().ModelInfo(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	out, err := json.MarshalIndent(modelInfo, "", "  ")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	fmt.Fprintln(stdout, string(out))
	return exitOK
}

func printResult(rec session.Record, stdout, stderr io.Writer) int {
	if msg := rec.PredictionError(); msg != "" {
		fmt.Fprintln(stderr, msg)
		return exitError
	}
	p := rec.PredictionResult
	if p == nil {
		fmt.Fprintln(stderr, errors.New("no prediction result"))
		return exitError
	}

	width := int(p.BarPercent() / 5)
	fmt.Fprintf(stdout, "%s  %5.1f%%  [%s%s]\n", p.Label, p.Confidence, strings.Repeat("#", width), strings.Repeat(".", 20-width))
	return exitOK
}
