package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
)

// CollectIdentifiers gathers raw identifiers from -asins, positional
// arguments and -file, in that order. Entries are not validated here.
func CollectIdentifiers(flags *AnalyzeFlags) ([]string, error) {
	var raw []string
	raw = append(raw, buybox.SplitIdentifiers(flags.ASINs)...)
	for _, arg := range flags.Args {
		raw = append(raw, buybox.SplitIdentifiers(arg)...)
	}

	if flags.File != "" {
		fromFile, err := readIdentifierFile(flags.File)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromFile...)
	}
	return raw, nil
}

// readIdentifierFile reads identifiers from path. Blank lines and lines
// starting with # are skipped.
func readIdentifierFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identifier file: %w", err)
	}
	defer f.Close()

	var raw []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, buybox.SplitIdentifiers(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read identifier file: %w", err)
	}
	return raw, nil
}
