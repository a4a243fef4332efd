package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"circle-search/src/config"
	"circle-search/src/logutil"
	"circle-search/src/opener"
	"circle-search/src/searchlink"
	"circle-search/src/upload"
)

const (
	version       = "1.0.0"
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath string
	format   string
	open     bool
	verbose  bool
}

func main() {
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func runWithArgs(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		args = []string{"circle-search-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(args)[1:])
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "circle-search-cli",
		Short:         "Upload a PNG and print its visual search link",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.open, "open", false, "Open the search link in the default browser")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "format", "open", "verbose"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	// Configure logging BEFORE any other operations.
	if opts.verbose {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	switch opts.format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", opts.format)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log.Printf("Upload endpoint: %s (timeout %ds)", cfg.UploadEndpoint, cfg.UploadTimeoutSec)

	path, cleanup, err := inputFile(opts.filePath, stdin)
	if err != nil {
		return err
	}
	defer cleanup()

	client := upload.NewClient(cfg.UploadEndpoint, cfg.UploadTimeout())
	start := time.Now()
	uploadURL, err := client.UploadAndNormalize(ctx, path)
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("Upload failed after %v: %v", elapsed, err)
		return fmt.Errorf("upload failed: %w", err)
	}
	log.Printf("Upload completed in %v: %s", elapsed, logutil.Sanitize(uploadURL))

	res := linkResult{
		Source:    opts.filePath,
		UploadURL: uploadURL,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
	}
	res.SearchURL = searchlink.Builder{Host: cfg.SearchHost}.Build(res.UploadURL)

	if opts.open {
		if err := opener.Open(res.SearchURL); err != nil {
			return fmt.Errorf("open search link: %w", err)
		}
	}

	return outputResult(stdout, res, opts.format)
}

// inputFile returns a path the uploader can read. Stdin is spooled to a temp
// file which cleanup removes.
func inputFile(filePath string, stdin io.Reader) (string, func(), error) {
	noop := func() {}

	var data []byte
	var err error
	if filePath == "-" {
		log.Printf("Reading image from stdin")
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return "", noop, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		log.Printf("Reading image from file: %s", filePath)
		data, err = os.ReadFile(filePath)
		if err != nil {
			return "", noop, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if err := validatePNG(data); err != nil {
		return "", noop, err
	}
	log.Printf("Read %d bytes, PNG validation passed", len(data))

	if filePath != "-" {
		return filePath, noop, nil
	}

	dir, err := os.MkdirTemp("", "circle-search-cli-")
	if err != nil {
		return "", noop, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	path := filepath.Join(dir, "stdin.png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("spool stdin: %w", err)
	}
	return path, cleanup, nil
}

func validatePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

type linkResult struct {
	Source    string  `json:"source" yaml:"source"`
	UploadURL string  `json:"upload_url" yaml:"upload_url"`
	SearchURL string  `json:"search_url" yaml:"search_url"`
	Timestamp string  `json:"timestamp" yaml:"timestamp"`
	Duration  float64 `json:"duration_seconds" yaml:"duration_seconds"`
}

func outputResult(w io.Writer, res linkResult, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(res); err != nil {
			return fmt.Errorf("failed to encode YAML output: %w", err)
		}
		return encoder.Close()
	default:
		_, err := fmt.Fprintf(w, "%s\n%s\n", res.UploadURL, res.SearchURL)
		return err
	}
	return nil
}
