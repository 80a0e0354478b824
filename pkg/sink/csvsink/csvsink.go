// Package csvsink implements the CSV Sink (C4): the fallback/parallel
// recording surface an acquisition loop writes to when OPC UA is down or
// csv_flag is set (§4.4). The file and its directory are created lazily:
// nothing is touched on disk until the first row is actually written.
package csvsink

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"finsbridge/pkg/runtime"
	"finsbridge/pkg/sample"
)

// Sink lazily owns one CSV file per acquisition loop lifetime. The file
// name is fixed at construction from startedAt, so a loop that runs past
// midnight keeps writing to the same timestamped file.
type Sink struct {
	plcName   string
	dir       string
	startedAt time.Time

	file   *os.File
	writer *csv.Writer
	header []string
}

// New returns a Sink for plcName. startedAt is the loop's cycle-start
// timestamp, fixed once at construction per §4.4's naming rule.
func New(plcName string, startedAt time.Time) *Sink {
	return &Sink{
		plcName:   plcName,
		dir:       filepath.Join("PLC_Data", plcName),
		startedAt: startedAt,
	}
}

// Path returns the file path this sink will use (or is using), without
// creating anything.
func (s *Sink) Path() string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", s.plcName, s.startedAt.Format("20060102_150405")))
}

// Write appends one row built from buf, opening the file and writing the
// header on the first call. header order is taken from buf's declared tag
// order so every subsequent row lines up with it even if later cycles omit
// a tag that failed to read.
func (s *Sink) Write(buf *sample.Buffer) error {
	if s.file == nil {
		if err := s.open(buf); err != nil {
			return err
		}
	}

	row := make([]string, 0, len(s.header))
	row = append(row, time.Now().Format("2006-01-02T15:04:05.000"))
	for _, tagName := range s.header[1:] {
		v, _ := buf.Get(tagName)
		row = append(row, renderValue(v))
	}

	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("csvsink: write row: %w", err)
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *Sink) open(buf *sample.Buffer) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("csvsink: mkdir %s: %w", s.dir, err)
	}

	f, err := os.Create(s.Path())
	if err != nil {
		return fmt.Errorf("csvsink: create: %w", err)
	}

	header := make([]string, 0, buf.Len()+1)
	header = append(header, "timestamp")
	buf.Each(func(tagName string, v runtime.Value) {
		header = append(header, tagName)
	})

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("csvsink: write header: %w", err)
	}

	s.file = f
	s.writer = w
	s.header = header
	return nil
}

// Close flushes and closes the file if it was ever opened. Calling Close
// on a Sink that never wrote a row is a no-op, per §4.4's
// directory-untouched-if-never-used rule.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	err := s.file.Close()
	s.file = nil
	return err
}

// Remove deletes the CSV file, used when a loop exits with
// ExitFinsUnreachable per §4.4: a fallback file with no PLC behind it is
// discarded rather than left as a near-empty artifact. A no-op if the file
// was never opened.
func (s *Sink) Remove() error {
	wasOpen := s.file != nil
	if err := s.Close(); err != nil {
		return err
	}
	if !wasOpen {
		return nil
	}
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("csvsink: remove %s: %w", s.Path(), err)
	}
	return nil
}

// renderValue implements §4.4's per-type CSV encoding: empty field for an
// absent reading, Python-style True/False for BOOL, plain decimal text for
// everything else.
func renderValue(v runtime.Value) string {
	if !v.Present {
		return ""
	}
	switch x := v.V.(type) {
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	case float32:
		return formatFloat(x)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// formatFloat renders x in fixed decimal notation with at least 6
// significant digits (§4.4), unlike strconv's shortest round-trip form
// which can collapse to as few as one digit for values like 1.5.
func formatFloat(x float32) string {
	f := float64(x)
	if f == 0 {
		return strconv.FormatFloat(0, 'f', 6, 32)
	}

	exp := int(math.Floor(math.Log10(math.Abs(f))))
	decimals := 6 - (exp + 1)
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(f, 'f', decimals, 32)
}
