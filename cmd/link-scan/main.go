package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mmarfinetz/gmail-unsubscriber/internal/links"
	"github.com/mmarfinetz/gmail-unsubscriber/internal/logging"
	"go.uber.org/zap"
)

var (
	inputFile = flag.String("file", "", "Input HTML file (use stdin if not specified)")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

// link-scan runs the unsubscribe link locator against a saved email body.
// Useful for checking why a particular newsletter was or was not matched.
func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var reader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		reader = file
		logger.Info("Reading body from file", zap.String("file", *inputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading body from stdin")
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		logger.Fatal("Failed to read body", zap.Error(err))
	}

	locator := links.NewLocator(logger)
	candidates := locator.Find(string(body))

	fmt.Printf("\n=== Candidates ===\n")
	if len(candidates) == 0 {
		fmt.Println("No unsubscribe links found")
		return
	}
	for i, url := range candidates {
		fmt.Printf("%d. %s\n", i+1, url)
	}
}
