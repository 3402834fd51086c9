// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package curator exports the training records eligible for learning to a
// flat CSV file.
//
// Given the same records the export is byte-identical: rows are ordered by
// created_at then insertion id, timestamps are rendered in UTC with
// millisecond precision, and output JSON is compacted. Output that is not
// valid JSON is exported as a JSON string instead of failing the run. The file is written
// to a temporary file next to the target, fsynced and renamed into place, so
// readers only ever see a complete export.
package curator

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
)

// Header is the CSV header row.
var Header = []string{"phase", "prompt_hash", "output_json", "created_at"}

// TimestampLayout renders created_at in ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultTrustedProvenance lists the provenances exported even when the
// record was not accepted.
var DefaultTrustedProvenance = []string{models.ProvenanceHumanValidated, models.ProvenanceABTestWinner}

// Store returns exportable records, already filtered and ordered.
type Store interface {
	ExportableTrainingRecords(ctx context.Context, trustedProvenance []string) ([]models.TrainingRecord, error)
}

// ManifestStore records completed exports.
type ManifestStore interface {
	SaveExportManifest(ctx context.Context, m *models.ExportManifest) error
}

// Config configures a Curator.
type Config struct {
	OutputPath        string
	TrustedProvenance []string
}

// Curator writes dataset exports.
type Curator struct {
	store     Store
	manifests ManifestStore
	cfg       Config
	logger    zerolog.Logger
	now       func() time.Time
	writeRows func(io.Writer, []models.TrainingRecord) error
}

// New creates a Curator. manifests may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(store Store, manifests ManifestStore, cfg Config, logger zerolog.Logger) (*Curator, error) {
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("curator output path is required")
	}
	if len(cfg.TrustedProvenance) == 0 {
		cfg.TrustedProvenance = DefaultTrustedProvenance
	}
	return &Curator{
		store:     store,
		manifests: manifests,
		cfg:       cfg,
		logger:    logger.With().Str("component", "curator").Logger(),
		now:       time.Now,
		writeRows: WriteCSV,
	}, nil
}

// ExportDataset writes every exportable record to the configured output
// path and returns the manifest of the written file. On failure no file is
// left behind and any previous export at the path is untouched.
func (c *Curator) ExportDataset(ctx context.Context) (*models.ExportManifest, error) {
	m, err := c.export(ctx)
	if err != nil {
		metrics.RecordDatasetExport(0, err)
		c.logger.Error().Err(err).Str("path", c.cfg.OutputPath).Msg("dataset export failed")
		return nil, err
	}
	metrics.RecordDatasetExport(m.Rows, nil)

	if c.manifests != nil {
		if err := c.manifests.SaveExportManifest(ctx, m); err != nil {
			c.logger.Warn().Err(err).Msg("failed to save export manifest")
		}
	}

	c.logger.Info().
		Str("path", m.Path).
		Int("rows", m.Rows).
		Int64("bytes", m.Bytes).
		Str("sha256", m.SHA256).
		Msg("dataset exported")
	return m, nil
}

func (c *Curator) export(ctx context.Context) (*models.ExportManifest, error) {
	records, err := c.store.ExportableTrainingRecords(ctx, c.cfg.TrustedProvenance)
	if err != nil {
		return nil, fmt.Errorf("read exportable records: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(c.cfg.OutputPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.cfg.OutputPath)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, sum, err := writeAndSync(tmp, records, c.writeRows)
	if err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error
		return nil, err
	}

	if err := os.Rename(tmpPath, c.cfg.OutputPath); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error
		return nil, fmt.Errorf("rename export into place: %w", err)
	}
	syncDir(dir)

	return &models.ExportManifest{
		Path:       c.cfg.OutputPath,
		Rows:       len(records),
		Bytes:      written,
		SHA256:     sum,
		ExportedAt: c.now().UTC(),
	}, nil
}

// writeAndSync writes the CSV to f, fsyncs and closes it. It returns the
// byte count and hex SHA-256 of the content.
func writeAndSync(f *os.File, records []models.TrainingRecord, writeRows func(io.Writer, []models.TrainingRecord) error) (int64, string, error) {
	hasher := sha256.New()
	counter := &countingWriter{}
	buf := bufio.NewWriter(io.MultiWriter(f, hasher, counter))

	if err := writeRows(buf, records); err != nil {
		f.Close() //nolint:errcheck // Best effort cleanup on error
		return 0, "", err
	}
	if err := buf.Flush(); err != nil {
		f.Close() //nolint:errcheck // Best effort cleanup on error
		return 0, "", fmt.Errorf("flush export: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck // Best effort cleanup on error
		return 0, "", fmt.Errorf("sync export: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, "", fmt.Errorf("close export: %w", err)
	}
	return counter.n, hexSum(hasher), nil
}

// WriteCSV writes the header and one row per record to w.
func WriteCSV(w io.Writer, records []models.TrainingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		output, err := outputJSON(r.Output)
		if err != nil {
			return fmt.Errorf("record %d: %w", r.ID, err)
		}
		row := []string{
			r.Phase,
			r.PromptHash,
			output,
			r.CreatedAt.UTC().Format(TimestampLayout),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// outputJSON renders a record's output for the output_json column. Valid
// JSON is compacted; anything else is encoded as a JSON string.
func outputJSON(raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null", nil
	}
	if json.Valid(raw) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String(), nil
		}
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return "", fmt.Errorf("encode output: %w", err)
	}
	return string(quoted), nil
}

// syncDir fsyncs dir so the rename itself is durable. Not every platform
// supports syncing a directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // G304: export directory comes from configuration
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func hexSum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
