// Package log persists the match event stream as hourly-rotated,
// zstd-compressed JSONL files. The journal is an audit trail; reads go
// through the archive db, not these files.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"fragsim.gg/internal/protocol"
	"fragsim.gg/internal/sim/match"
)

// Entry is one journal line.
type Entry struct {
	SimulationID string          `json:"simulation_id"`
	Kind         string          `json:"kind"`
	Data         json.RawMessage `json:"data"`
	WrittenAt    string          `json:"written_at"`
}

// EventJournal appends match events to events-<hour>.jsonl.zst files.
type EventJournal struct {
	baseDir string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewEventJournal(baseDir string) *EventJournal {
	return &EventJournal{baseDir: baseDir}
}

// WriteEvents journals a batch of events for one simulation. Encoding
// errors skip the event; write errors abort the batch.
func (j *EventJournal) WriteEvents(simID string, events []match.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now().UTC()
	hour := now.Format("2006-01-02-15")
	if hour != j.curHour {
		if err := j.rotateLocked(hour); err != nil {
			return err
		}
	}

	writtenAt := now.Format(time.RFC3339Nano)
	for _, e := range events {
		msg, err := protocol.EncodeEvent(e)
		if err != nil {
			continue
		}
		line, err := json.Marshal(Entry{
			SimulationID: simID,
			Kind:         msg.Kind,
			Data:         msg.Data,
			WrittenAt:    writtenAt,
		})
		if err != nil {
			continue
		}
		if _, err := j.w.Write(line); err != nil {
			return err
		}
		if err := j.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return j.w.Flush()
}

func (j *EventJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *EventJournal) rotateLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	path := j.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 128*1024)
	j.curHour = hour
	return nil
}

func (j *EventJournal) closeLocked() error {
	var err error
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.w = nil
	return err
}

func (j *EventJournal) pathForHour(hour string) string {
	return filepath.Join(j.baseDir, fmt.Sprintf("events-%s.jsonl.zst", hour))
}
