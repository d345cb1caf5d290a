// Package reporting turns method results into benchmark rows and writes
// them to the result sinks.
package reporting

import "errors"

// Sink receives the records of finished runs. Implementations are safe for
// concurrent use.
type Sink interface {
	Write(rec *RunRecord) error
	// Skip marks a run that produced no record.
	Skip(run int) error
	Close() error
}

type multiSink []Sink

// MultiSink fans records out to every sink.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Write(rec *RunRecord) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Write(rec))
	}
	return errors.Join(errs...)
}

func (m multiSink) Skip(run int) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Skip(run))
	}
	return errors.Join(errs...)
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
