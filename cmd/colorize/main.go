package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"colorizer/internal/colorize"
	"colorizer/internal/credits"
	"colorizer/internal/domain"
	"colorizer/internal/infra"
	"colorizer/internal/providers/image"
	"colorizer/internal/storage"
)

// colorize runs one file through the configured provider without the HTTP
// layer. Useful for checking credentials and prompts.
func main() {
	var (
		inFlag           string
		outFlag          string
		providerFlag     string
		instructionsFlag string
	)
	flag.StringVar(&inFlag, "in", "", "path of the line-art image to colorize")
	flag.StringVar(&outFlag, "out-dir", "", "directory for the result (defaults to the input's directory)")
	flag.StringVar(&providerFlag, "provider", "", "override IMAGE_PROVIDER (gemini or flux)")
	flag.StringVar(&instructionsFlag, "instructions", "", "custom instructions replacing the default prompt")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(inFlag) == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		os.Exit(1)
	}
	if p := strings.TrimSpace(providerFlag); p != "" {
		_ = os.Setenv("IMAGE_PROVIDER", p)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "colorize").Logger()

	data, err := os.ReadFile(inFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	adapter, err := image.FromConfig(cfg, nil, &logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider: %v\n", err)
		os.Exit(1)
	}
	svc, err := colorize.NewService(colorize.Options{
		Adapter: adapter,
		Store:   credits.NewMemoryStore(cfg.DefaultCredits),
		Cost:    cfg.CreditsPerImage,
		Logger:  &logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "service: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := svc.Process(ctx, colorize.Request{Image: data, CustomInstructions: instructionsFlag})
	switch res.Kind {
	case domain.ResultImage:
		dir := outFlag
		if dir == "" {
			dir = filepath.Dir(inFlag)
		}
		store, err := storage.NewFileStore(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "output: %v\n", err)
			os.Exit(1)
		}
		out, err := store.Write(ctx, storage.ResultKey(inFlag, res.MIMEType), res.Data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "write output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%s, %d bytes) via %s\n", out, res.MIMEType, len(res.Data), svc.Provider())
	case domain.ResultText:
		fmt.Printf("%s answered with text only:\n%s\n", svc.Provider(), res.Content)
	default:
		fmt.Fprintf(os.Stderr, "%s: %s\n", res.ErrorKind, res.ErrorMessage)
		os.Exit(2)
	}
}
