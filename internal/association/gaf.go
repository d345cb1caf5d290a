package association

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ontobench/ontobench/internal/ontology"
	"github.com/ontobench/ontobench/internal/utils"
)

// GAF column indexes.
const (
	colSymbol    = 2
	colQualifier = 3
	colTermID    = 4
	minColumns   = 5
)

// LoadGAF reads a (possibly gzip compressed) GO annotation file.
func LoadGAF(path string, o *ontology.Ontology) (*Container, error) {
	rc, err := utils.OpenInput(path)
	if err != nil {
		return nil, fmt.Errorf("gaf: %w", err)
	}
	defer rc.Close()

	c, err := ReadGAF(rc, o)
	if err != nil {
		return nil, fmt.Errorf("gaf: %s: %w", path, err)
	}
	return c, nil
}

// ReadGAF parses tab separated annotation lines. The object symbol is used
// as item identity. Negated annotations and annotations to terms unknown to
// o are skipped; o may be nil to keep every term.
func ReadGAF(r io.Reader, o *ontology.Ontology) (*Container, error) {
	c := NewContainer()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	skipped := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < minColumns {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", lineNo, minColumns, len(cols))
		}
		if isNegated(cols[colQualifier]) {
			continue
		}

		term, err := ontology.ParseTermID(cols[colTermID])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if o != nil && !o.Has(term) {
			skipped++
			continue
		}

		symbol := strings.TrimSpace(cols[colSymbol])
		if symbol == "" {
			continue
		}
		c.Add(symbol, term)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if skipped > 0 {
		slog.Debug("Skipped annotations to unknown terms", "count", skipped)
	}
	return c, nil
}

func isNegated(qualifier string) bool {
	for q := range strings.SplitSeq(qualifier, "|") {
		if q == "NOT" {
			return true
		}
	}
	return false
}
