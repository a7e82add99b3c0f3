package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	appconfig "flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
)

// Exporter persists a run's ranking in the configured formats and ships the
// results to the configured destinations. Export failures are reported but a
// run with a printed report is still a successful run.
type Exporter struct {
	config *appconfig.Config
	log    *logger.Log
	runID  string
	s3     *S3Uploader
	kafka  *KafkaPublisher
}

func NewExporter(ctx context.Context, cfg *appconfig.Config) (*Exporter, error) {
	e := &Exporter{
		config: cfg,
		log:    logger.GetLogger(),
		runID:  uuid.New().String(),
	}

	if cfg.Storage.S3.Enabled {
		uploader, err := NewS3Uploader(ctx, cfg)
		if err != nil {
			return nil, err
		}
		e.s3 = uploader
	}
	if cfg.Storage.Kafka.Enabled {
		publisher, err := NewKafkaPublisher(cfg)
		if err != nil {
			return nil, err
		}
		e.kafka = publisher
	}
	return e, nil
}

// RunID identifies this run in filenames and published events.
func (e *Exporter) RunID() string { return e.runID }

// Export writes every enabled format and returns the local paths written.
// Each destination is attempted independently so one failing sink does not
// block the others.
func (e *Exporter) Export(ctx context.Context, req models.SearchRequest, ranking models.Ranking) ([]string, error) {
	log := e.log.WithComponent("writer")

	if err := os.MkdirAll(e.config.Writer.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	var firstErr error
	record := func(path string, err error) {
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"path": path}).Error("export failed")
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		paths = append(paths, path)
		logger.RecordExport()
		log.WithFields(logger.Fields{"path": path}).Info("export written")
	}

	base := fmt.Sprintf("deals_%s-%s_%s_%s", req.Origin, req.Destination, req.DepartureDate, e.runID[:8])

	if e.config.Writer.CSV.Enabled {
		path := filepath.Join(e.config.Writer.OutputDir, base+".csv")
		record(path, writeCSV(path, req, ranking))
	}
	if e.config.Writer.Parquet.Enabled {
		path := filepath.Join(e.config.Writer.OutputDir, base+".parquet")
		record(path, writeParquet(path, req, ranking, e.config.Writer.Parquet.Compression))
	}

	if e.s3 != nil {
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				log.WithError(err).WithFields(logger.Fields{"path": path}).Error("read export for upload failed")
				continue
			}
			contentType := "text/csv"
			if filepath.Ext(path) == ".parquet" {
				contentType = "application/octet-stream"
			}
			if err := e.s3.Upload(ctx, filepath.Base(path), data, contentType); err != nil {
				log.WithError(err).Error("S3 upload failed")
			}
		}
	}

	if e.kafka != nil {
		if err := e.kafka.Publish(ctx, e.runID, req, ranking); err != nil {
			log.WithError(err).Error("kafka publish failed")
		}
	}

	return paths, firstErr
}

func (e *Exporter) Close() error {
	if e.kafka != nil {
		return e.kafka.Close()
	}
	return nil
}
