// Package influx writes per-turn and per-breach points to InfluxDB. When the
// server is unreachable the points go to a gzipped line-protocol backup file
// instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/turretline/algo/internal/config"
	"github.com/turretline/algo/pkg/core"
)

// Measurement names.
const (
	MeasurementTurn   = "turn"
	MeasurementBreach = "breach"
)

const retention = 60 * 60 * 24 * 30 // 30 days

var errNotConnected = errors.New("influx recorder not connected")

// Recorder handles the InfluxDB connection and writes.
type Recorder struct {
	cfg        config.InfluxConfig
	client     influxdb2.Client
	writer     influxdb2_api.WriteAPI
	backupPath string
	backupFile *os.File
	backup     *gzip.Writer
	log        zerolog.Logger
}

// New creates a recorder. Call Connect before writing.
func New(cfg config.InfluxConfig, backupPath string, log zerolog.Logger) *Recorder {
	return &Recorder{
		cfg:        cfg,
		backupPath: backupPath,
		log:        log,
	}
}

// Connect pings the server and prepares the bucket. An unreachable server
// switches the recorder to the backup file, which is not an error.
func (r *Recorder) Connect(ctx context.Context) error {
	r.client = influxdb2.NewClientWithOptions(
		r.cfg.URL(),
		r.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := r.client.Ping(ctx)
	if err != nil || !running {
		r.log.Warn().Err(err).Str("backupPath", r.backupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		r.client.Close()
		r.client = nil
		return r.openBackup()
	}

	if err := r.ensureBucket(ctx); err != nil {
		return err
	}

	r.writer = r.client.WriteAPI(r.cfg.Org, r.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			r.log.Error().Err(writeErr).Str("bucket", r.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(r.writer.Errors())

	r.log.Info().Str("url", r.cfg.URL()).Str("bucket", r.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (r *Recorder) openBackup() error {
	if r.backupPath == "" {
		return fmt.Errorf("influx unreachable and no backup path configured")
	}
	file, err := os.OpenFile(r.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	r.backupFile = file
	r.backup = gzip.NewWriter(file)
	return nil
}

func (r *Recorder) ensureBucket(ctx context.Context) error {
	if _, err := r.client.BucketsAPI().FindBucketByName(ctx, r.cfg.Bucket); err == nil {
		return nil
	}

	org, err := r.client.OrganizationsAPI().FindOrganizationByName(ctx, r.cfg.Org)
	if err != nil {
		r.log.Info().Str("org", r.cfg.Org).Msg("Organization not found, creating")
		org, err = r.client.OrganizationsAPI().CreateOrganizationWithName(ctx, r.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", r.cfg.Org, err)
		}
	}

	r.log.Info().Str("bucket", r.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = r.client.BucketsAPI().CreateBucketWithName(ctx, org, r.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: retention,
	})
	if err != nil {
		return fmt.Errorf("error creating bucket %s: %w", r.cfg.Bucket, err)
	}
	return nil
}

// WritePoint sends a point to InfluxDB or the backup file.
func (r *Recorder) WritePoint(p *influxdb2_write.Point) error {
	switch {
	case r.writer != nil:
		r.writer.WritePoint(p)
		return nil
	case r.backup != nil:
		line := strings.TrimRight(influxdb2_write.PointToLineProtocol(p, time.Nanosecond), "\n") + "\n"
		if _, err := r.backup.Write([]byte(line)); err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
		}
		return nil
	default:
		return errNotConnected
	}
}

// RecordTurn writes one turn point.
func (r *Recorder) RecordTurn(t *core.TurnDecision) error {
	return r.WritePoint(TurnPoint(t))
}

// RecordBreach writes one breach point.
func (r *Recorder) RecordBreach(b *core.Breach) error {
	return r.WritePoint(BreachPoint(b))
}

// Close flushes pending points and releases the client or backup file.
func (r *Recorder) Close() error {
	if r.writer != nil {
		r.writer.Flush()
	}
	if r.client != nil {
		r.client.Close()
	}
	if r.backup != nil {
		err := r.backup.Close()
		return errors.Join(err, r.backupFile.Close())
	}
	return nil
}

// TurnPoint builds the point for a turn decision.
func TurnPoint(t *core.TurnDecision) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementTurn,
		map[string]string{
			"match":  t.MatchID.String(),
			"branch": t.Branch,
		},
		map[string]any{
			"turn":      t.Turn,
			"sp_before": t.SPBefore,
			"mp_before": t.MPBefore,
			"sp_after":  t.SPAfter,
			"mp_after":  t.MPAfter,
			"build":     len(t.Build),
			"deploy":    len(t.Deploy),
			"rushed":    t.Rushed,
			"reacted":   t.Reacted,
			"failed":    t.Failed,
		},
		t.Time,
	)
}

// BreachPoint builds the point for a breach.
func BreachPoint(b *core.Breach) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementBreach,
		map[string]string{
			"match": b.MatchID.String(),
		},
		map[string]any{
			"turn":    b.Turn,
			"frame":   b.Frame,
			"x":       b.At[0],
			"y":       b.At[1],
			"damage":  b.Damage,
			"unit_id": b.UnitID,
		},
		b.Time,
	)
}
