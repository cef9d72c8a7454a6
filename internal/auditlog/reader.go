// Package auditlog reads the audit trail back and turns it into reports.
package auditlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/gzhole/hookwarden/internal/logger"
)

// maxBufferedLines bounds how far an unterminated object is carried before
// it is given up on.
const maxBufferedLines = 64

// Stats counts what Read made of its input.
type Stats struct {
	Lines     int
	Records   int
	Discarded int
}

// reader accumulates lines of a record that did not fit on one line, either
// because it was pretty-printed or because a concurrent writer split it.
type reader struct {
	records []logger.Record
	stats   Stats
	pending [][]byte
}

// Read parses newline-delimited records tolerantly. Complete objects are
// returned in input order; fragments that never become a valid object are
// dropped and counted in Stats.Discarded. Read never fails on content; an
// error is only returned when r itself fails.
func Read(r io.Reader) ([]logger.Record, Stats, error) {
	rd := &reader{}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			rd.stats.Lines++
			rd.line(bytes.TrimSpace(line))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			rd.flush()
			return rd.records, rd.stats, err
		}
	}
	rd.flush()
	return rd.records, rd.stats, nil
}

// ReadFile reads path, treating a missing file as an empty log.
func ReadFile(path string) ([]logger.Record, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Stats{}, nil
		}
		return nil, Stats{}, err
	}
	defer f.Close()
	return Read(f)
}

// ReadDir reads the combined log of a log directory.
func ReadDir(dir string) ([]logger.Record, Stats, error) {
	return ReadFile(filepath.Join(dir, logger.AllEventsFile))
}

func (rd *reader) line(line []byte) {
	if len(line) == 0 {
		return
	}
	if len(rd.pending) == 0 && line[0] != '{' {
		rd.stats.Discarded++
		return
	}

	// A line that is a whole record on its own starts over, even when the
	// pending fragment could still absorb it. A compact nested object inside
	// a pretty-printed record carries none of the record keys.
	if len(rd.pending) > 0 && line[0] == '{' {
		if rec, err := decode(line); err == nil && rec.ID+rec.Timestamp+rec.EventType != "" {
			rd.discardPending()
			rd.keep(rec)
			return
		}
	}

	rd.pending = append(rd.pending, append([]byte(nil), line...))
	rec, err := decode(bytes.Join(rd.pending, []byte("\n")))
	switch {
	case err == nil:
		rd.keep(rec)
		rd.pending = nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		if len(rd.pending) >= maxBufferedLines {
			rd.discardPending()
		}
	default:
		// An object start that does not continue the pending fragment is
		// the next record; the fragment before it was cut short for good.
		if len(rd.pending) > 1 && line[0] == '{' {
			rd.pending = rd.pending[:len(rd.pending)-1]
			rd.discardPending()
			rd.line(line)
			return
		}
		rd.discardPending()
	}
}

func (rd *reader) keep(rec logger.Record) {
	rd.records = append(rd.records, rec)
	rd.stats.Records++
}

func (rd *reader) flush() {
	if len(rd.pending) > 0 {
		rd.discardPending()
	}
}

func (rd *reader) discardPending() {
	rd.stats.Discarded += len(rd.pending)
	rd.pending = nil
}

// decode returns io.ErrUnexpectedEOF when data is a valid but unterminated
// object prefix.
func decode(data []byte) (logger.Record, error) {
	var rec logger.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.ErrUnexpectedEOF
		}
		return rec, err
	}
	return rec, nil
}
