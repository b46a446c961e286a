// Command regen renders every .htms file under a directory to a sibling
// .html file.
//
// Usage:
//
//	regen [-vars file.yaml] [-log-level info] [dir]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/CTAG07/Bakery/pkg/bakery"
	"github.com/CTAG07/Bakery/pkg/logging"
	"github.com/CTAG07/Bakery/pkg/templating"
)

func main() {
	varsPath := flag.String("vars", "", "YAML or JSON file of bindings available to every page")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [dir]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(*logLevel)}))

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}
	root := "."
	if flag.NArg() == 1 {
		root = flag.Arg(0)
	}

	vars := bakery.Bindings{}
	if *varsPath != "" {
		var err error
		vars, err = templating.LoadVars(*varsPath)
		if err != nil {
			logger.Error("Failed to load vars", "error", err)
			os.Exit(1)
		}
	}

	written, err := templating.Regenerate(logger, root, templating.DefaultConfig(), vars)
	if err != nil {
		logger.Error("Regeneration failed", "written", len(written), "error", err)
		os.Exit(1)
	}
	logger.Info("Regeneration complete", "files", len(written))
}
