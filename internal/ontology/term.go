package ontology

import (
	"fmt"
	"strconv"
	"strings"
)

// TermID identifies a category, e.g. GO:0008150.
type TermID struct {
	Prefix string
	ID     int
}

// ParseTermID parses identifiers of the form PREFIX:NNNNNNN.
func ParseTermID(s string) (TermID, error) {
	prefix, num, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || prefix == "" || num == "" {
		return TermID{}, fmt.Errorf("malformed term id %q", s)
	}
	id, err := strconv.Atoi(num)
	if err != nil || id < 0 {
		return TermID{}, fmt.Errorf("malformed term id %q", s)
	}
	return TermID{Prefix: prefix, ID: id}, nil
}

// MustParseTermID is like ParseTermID but panics on malformed input.
func MustParseTermID(s string) TermID {
	id, err := ParseTermID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (t TermID) String() string {
	return fmt.Sprintf("%s:%07d", t.Prefix, t.ID)
}

// IsZero reports whether t is the zero TermID.
func (t TermID) IsZero() bool {
	return t.Prefix == "" && t.ID == 0
}

// Term is a single node of the ontology.
type Term struct {
	ID        TermID
	Name      string
	Namespace string

	// Parents holds is_a and part_of targets.
	Parents []TermID

	Obsolete bool
}
