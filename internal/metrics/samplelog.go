// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"grimm.is/linkguard/internal/errors"
)

// SampleLogHeader is the first line of every sample log.
const SampleLogHeader = "#tsv\ttime\ttxpkts\ttxbytes\trxpkts\trxbytes\n"

// SampleLogName is the sample log file name inside the output directory.
const SampleLogName = "dump.tsv"

// SampleRecord is one line of the sample log.
type SampleRecord struct {
	Time      float64 // seconds since the Unix epoch
	TxPackets uint64
	TxBytes   uint64
	RxPackets uint64
	RxBytes   uint64
}

// RecordFromSample pairs a sample with its timestamp.
func RecordFromSample(ts float64, s Sample) SampleRecord {
	return SampleRecord{
		Time:      ts,
		TxPackets: s.TxPackets,
		TxBytes:   s.TxBytes,
		RxPackets: s.RxPackets,
		RxBytes:   s.RxBytes,
	}
}

// String encodes the record as one tab-separated line without newline.
// The timestamp uses the shortest representation that parses back to the
// same float64.
func (r SampleRecord) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(r.Time, 'f', -1, 64),
		strconv.FormatUint(r.TxPackets, 10),
		strconv.FormatUint(r.TxBytes, 10),
		strconv.FormatUint(r.RxPackets, 10),
		strconv.FormatUint(r.RxBytes, 10),
	}, "\t")
}

// ParseSampleRecord decodes a line produced by SampleRecord.String.
func ParseSampleRecord(line string) (SampleRecord, error) {
	fields := strings.Split(strings.TrimRight(line, "\n"), "\t")
	if len(fields) != 5 {
		return SampleRecord{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	var r SampleRecord
	var err error
	if r.Time, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return SampleRecord{}, fmt.Errorf("time: %w", err)
	}
	ints := []*uint64{&r.TxPackets, &r.TxBytes, &r.RxPackets, &r.RxBytes}
	for i, dst := range ints {
		if *dst, err = strconv.ParseUint(fields[i+1], 10, 64); err != nil {
			return SampleRecord{}, fmt.Errorf("field %d: %w", i+2, err)
		}
	}
	return r, nil
}

// SampleLog is the append-only per-tick traffic log.
// It is owned by the sampling loop and is not safe for concurrent use.
type SampleLog struct {
	w      io.Writer
	closer io.Closer
}

// NewSampleLog writes the header to w and returns a log appending to it.
func NewSampleLog(w io.Writer) (*SampleLog, error) {
	if _, err := io.WriteString(w, SampleLogHeader); err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "failed to write sample log header")
	}
	l := &SampleLog{w: w}
	if c, ok := w.(io.Closer); ok {
		l.closer = c
	}
	return l, nil
}

// OpenSampleLog creates or truncates path and writes the header.
func OpenSampleLog(path string) (*SampleLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindIO, "failed to open sample log"), "path", path)
	}
	l, err := NewSampleLog(f)
	if err != nil {
		f.Close()
		return nil, errors.Attr(err, "path", path)
	}
	return l, nil
}

// Append writes one record.
func (l *SampleLog) Append(r SampleRecord) error {
	if _, err := io.WriteString(l.w, r.String()+"\n"); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to write sample record")
	}
	return nil
}

// Close closes the underlying file, if any.
func (l *SampleLog) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
