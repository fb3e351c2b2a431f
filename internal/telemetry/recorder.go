/*
Package telemetry
File: recorder.go
Description:
    Archives ship tracks to parquet.

    The Recorder buffers one row per ship per frame and writes a zstd
    compressed parquet file every FlushEvery frames. Files are written to a
    temporary name and renamed so readers never see a partial file.
*/

package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/everforgeworks/shipnav/internal/game"
)

// TrackRow is one ship's state in one frame.
type TrackRow struct {
	Frame     int64   `parquet:"frame"`
	ShipID    string  `parquet:"ship_id,dict"`
	X         float64 `parquet:"x"`
	Y         float64 `parquet:"y"`
	Heading   float64 `parquet:"heading"`
	CellX     int32   `parquet:"cell_x"`
	CellY     int32   `parquet:"cell_y"`
	Traveling bool    `parquet:"traveling"`
	Turning   bool    `parquet:"turning"`
	Visible   bool    `parquet:"visible"`
	Surface   float32 `parquet:"surface"`
	MapPoint  string  `parquet:"map_point,dict,optional"`
}

// Recorder buffers track rows and flushes them to dir.
type Recorder struct {
	dir        string
	flushEvery int

	rows       []TrackRow
	frames     int
	firstFrame int64
	lastFrame  int64

	logger *log.Logger
}

// NewRecorder creates dir if needed.
func NewRecorder(dir string, flushEvery int, logger *log.Logger) (*Recorder, error) {
	if logger == nil {
		logger = log.Default()
	}
	if flushEvery <= 0 {
		flushEvery = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	return &Recorder{dir: dir, flushEvery: flushEvery, logger: logger.WithPrefix("telemetry")}, nil
}

// Record appends the frame's snapshots, flushing when the batch is full.
func (r *Recorder) Record(frame int64, ships []game.ShipSnapshot) error {
	if r.frames == 0 {
		r.firstFrame = frame
	}
	r.lastFrame = frame
	r.frames++

	for _, s := range ships {
		r.rows = append(r.rows, TrackRow{
			Frame:     frame,
			ShipID:    s.ID,
			X:         s.X,
			Y:         s.Y,
			Heading:   s.Heading,
			CellX:     int32(s.Cell.X),
			CellY:     int32(s.Cell.Y),
			Traveling: s.Traveling,
			Turning:   s.Turning,
			Visible:   s.Visible,
			Surface:   float32(s.Surface),
			MapPoint:  s.MapPoint,
		})
	}

	if r.frames >= r.flushEvery {
		_, err := r.Flush()
		return err
	}
	return nil
}

// Flush writes the buffered rows and returns the file path.
// An empty buffer writes nothing and returns "".
func (r *Recorder) Flush() (string, error) {
	if len(r.rows) == 0 {
		r.frames = 0
		return "", nil
	}

	outPath := filepath.Join(r.dir, fmt.Sprintf("tracks_%010d_%010d.parquet", r.firstFrame, r.lastFrame))
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, r.rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "ship_track_v1"),
	); err != nil {
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return "", fmt.Errorf("rename parquet: %w", err)
	}

	r.logger.Debug("flushed tracks", "path", outPath, "rows", len(r.rows), "frames", r.frames)
	r.rows = r.rows[:0]
	r.frames = 0
	return outPath, nil
}

// ReadTracks loads a file written by Flush.
func ReadTracks(path string) ([]TrackRow, error) {
	rows, err := parquet.ReadFile[TrackRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}
