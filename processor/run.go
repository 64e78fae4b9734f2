/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/suparena/sti"
)

// DefaultSchemaEnv names the environment variable holding the default
// schema document path.
const DefaultSchemaEnv = "STI_SCHEMA"

// Run validates a schema document and writes its resolved summary to out
// as JSON. args are the command line arguments without the program name.
func Run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stictl", flag.ContinueOnError)
	fs.SetOutput(out)

	defaultPath := os.Getenv(DefaultSchemaEnv)
	if defaultPath == "" {
		defaultPath = "sti.yaml"
	}
	var (
		path    = fs.String("config", defaultPath, "schema document to read")
		check   = fs.Bool("check", false, "only validate the document")
		version = fs.Bool("version", false, "show version information")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *version {
		info := sti.GetVersionInfo()
		fmt.Fprintf(out, "stictl version %s\n", info.Version)
		fmt.Fprintf(out, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
		return nil
	}

	doc, err := LoadFile(*path)
	if err != nil {
		return err
	}
	log.Debug().Str("config", *path).Int("types", len(doc.Types)).Msg("Schema document loaded")

	if *check {
		fmt.Fprintf(out, "%s: %d base types OK\n", *path, len(doc.Types))
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Describe(doc)); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}
