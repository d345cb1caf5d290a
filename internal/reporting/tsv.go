package reporting

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"sync"
)

// TSVSink writes the tab separated results and timing files. Records are
// written in run order: a run that finishes early is held until every
// earlier run has been written or skipped. Held runs stay in memory as
// formatted rows, so one slow run keeps every later finished run buffered
// until it completes.
type TSVSink struct {
	results io.Writer
	timing  io.Writer

	mu      sync.Mutex
	next    int
	pending map[int]*tsvChunk
}

type tsvChunk struct {
	results []byte
	timing  []byte
}

// NewTSVSink writes both headers and expects runs numbered from 1.
func NewTSVSink(results, timing io.Writer, methods []string) (*TSVSink, error) {
	var hdr bytes.Buffer
	hdr.WriteString("term\tlabel")
	for _, m := range methods {
		hdr.WriteString("\tp." + m)
	}
	hdr.WriteString("\tmore.general\tmore.specific\tpop.genes\tstudy.genes\trun\tsenseful\tvarying.beta\talpha\tbeta\n")
	if _, err := results.Write(hdr.Bytes()); err != nil {
		return nil, fmt.Errorf("writing results header: %w", err)
	}

	hdr.Reset()
	hdr.WriteString("run")
	for _, m := range methods {
		hdr.WriteString("\t" + m)
	}
	hdr.WriteByte('\n')
	if _, err := timing.Write(hdr.Bytes()); err != nil {
		return nil, fmt.Errorf("writing timing header: %w", err)
	}

	return &TSVSink{results: results, timing: timing, next: 1, pending: map[int]*tsvChunk{}}, nil
}

// Write formats rec and appends it once all earlier runs are done.
func (s *TSVSink) Write(rec *RunRecord) error {
	chunk := &tsvChunk{results: formatResults(rec), timing: formatTiming(rec)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[rec.Run] = chunk
	return s.drain()
}

func (s *TSVSink) Skip(run int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[run] = &tsvChunk{}
	return s.drain()
}

// Close writes whatever is still held back, in run order.
func (s *TSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range slices.Sorted(maps.Keys(s.pending)) {
		if err := s.emit(s.pending[run]); err != nil {
			return err
		}
		delete(s.pending, run)
	}
	return nil
}

func (s *TSVSink) drain() error {
	for {
		chunk, ok := s.pending[s.next]
		if !ok {
			return nil
		}
		delete(s.pending, s.next)
		s.next++
		if err := s.emit(chunk); err != nil {
			return err
		}
	}
}

func (s *TSVSink) emit(c *tsvChunk) error {
	if len(c.results) > 0 {
		if _, err := s.results.Write(c.results); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}
	if len(c.timing) > 0 {
		if _, err := s.timing.Write(c.timing); err != nil {
			return fmt.Errorf("writing timing: %w", err)
		}
	}
	return nil
}

func formatResults(rec *RunRecord) []byte {
	var b bytes.Buffer
	b.Grow(len(rec.Rows) * 96)

	run := strconv.Itoa(rec.Run)
	senseful := flag(rec.Combination.Senseful)
	varying := flag(rec.Combination.VaryingBeta)
	alpha := formatFloat(rec.Alpha)
	beta := formatFloat(rec.Beta)

	for _, row := range rec.Rows {
		b.WriteString(row.Term.String())
		b.WriteByte('\t')
		b.WriteString(flag(row.Label))
		for _, p := range row.Scores {
			b.WriteByte('\t')
			b.WriteString(formatFloat(p))
		}
		for _, f := range []string{
			flag(row.MoreGeneral),
			flag(row.MoreSpecific),
			strconv.Itoa(row.PopulationCount),
			strconv.Itoa(row.StudyCount),
			run, senseful, varying, alpha, beta,
		} {
			b.WriteByte('\t')
			b.WriteString(f)
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

func formatTiming(rec *RunRecord) []byte {
	var b bytes.Buffer
	b.WriteString(strconv.Itoa(rec.Run))
	for _, d := range rec.Times {
		b.WriteByte('\t')
		b.WriteString(strconv.FormatInt(d.Milliseconds(), 10))
	}
	b.WriteByte('\n')
	return b.Bytes()
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
