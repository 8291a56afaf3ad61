package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/importer"
)

// sourceFor maps a command argument onto an import source. "-" reads stdin.
func sourceFor(arg string, stdin io.Reader) (importer.Source, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return importer.SourceFromText(string(data)), nil
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return importer.SourceFromURL(arg)
	default:
		return importer.SourceFromFile(arg), nil
	}
}

func readInput(arg string, stdin io.Reader) ([]byte, error) {
	if strings.TrimSpace(arg) == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(arg)
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" {
		_, err := stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
