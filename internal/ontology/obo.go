package ontology

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ontobench/ontobench/internal/utils"
)

// LoadOBO reads an ontology from an OBO file, which may be gzip compressed.
func LoadOBO(path string) (*Ontology, error) {
	rc, err := utils.OpenInput(path)
	if err != nil {
		return nil, fmt.Errorf("obo: %w", err)
	}
	defer rc.Close()

	o, err := ReadOBO(rc)
	if err != nil {
		return nil, fmt.Errorf("obo: %s: %w", path, err)
	}
	return o, nil
}

// ReadOBO parses the [Term] stanzas of an OBO document. Only the tags the
// benchmark needs are interpreted: id, name, namespace, is_a,
// relationship: part_of and is_obsolete.
func ReadOBO(r io.Reader) (*Ontology, error) {
	b := NewBuilder()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		cur    *Term
		inTerm bool
		lineNo int
	)

	flush := func() error {
		if cur == nil {
			return nil
		}
		t := *cur
		cur = nil
		if t.ID.IsZero() {
			return fmt.Errorf("term stanza ending at line %d has no id", lineNo)
		}
		return b.Add(t)
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if err := flush(); err != nil {
				return nil, err
			}
			inTerm = line == "[Term]"
			if inTerm {
				cur = &Term{}
			}
			continue
		}
		if !inTerm {
			continue
		}

		tag, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = stripComment(value)

		switch tag {
		case "id":
			id, err := ParseTermID(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur.ID = id
		case "name":
			cur.Name = value
		case "namespace":
			cur.Namespace = value
		case "is_a":
			id, err := ParseTermID(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur.Parents = append(cur.Parents, id)
		case "relationship":
			rel, target, _ := strings.Cut(value, " ")
			if rel != "part_of" {
				continue
			}
			id, err := ParseTermID(strings.TrimSpace(target))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur.Parents = append(cur.Parents, id)
		case "is_obsolete":
			cur.Obsolete = value == "true"
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return b.Build()
}

// stripComment removes trailing "! comment" text and qualifier blocks.
func stripComment(v string) string {
	if i := strings.Index(v, " !"); i >= 0 {
		v = v[:i]
	}
	if i := strings.Index(v, " {"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
