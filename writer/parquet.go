package writer

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"flightlooker/models"
)

// DealRecord is the parquet row schema for one ranked country.
type DealRecord struct {
	Rank             int32   `parquet:"name=rank, type=INT32"`
	Country          string  `parquet:"name=country, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price            float64 `parquet:"name=price, type=DOUBLE"`
	Currency         string  `parquet:"name=currency, type=BYTE_ARRAY, convertedtype=UTF8"`
	OriginalPrice    float64 `parquet:"name=original_price, type=DOUBLE"`
	OriginalCurrency string  `parquet:"name=original_currency, type=BYTE_ARRAY, convertedtype=UTF8"`
	Airline          string  `parquet:"name=airline, type=BYTE_ARRAY, convertedtype=UTF8"`
	Stops            int32   `parquet:"name=stops, type=INT32"`
	Departure        int64   `parquet:"name=departure, type=INT64"`
	Origin           string  `parquet:"name=origin, type=BYTE_ARRAY, convertedtype=UTF8"`
	Destination      string  `parquet:"name=destination, type=BYTE_ARRAY, convertedtype=UTF8"`
	TravelDate       string  `parquet:"name=travel_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	ExportedAt       int64   `parquet:"name=exported_at, type=INT64"`
}

// memoryFile implements the parquet source interface over a byte buffer so
// the file can be written atomically afterwards (and reused for S3 uploads).
type memoryFile struct {
	buffer *bytes.Buffer
}

func newMemoryFile() *memoryFile {
	return &memoryFile{buffer: &bytes.Buffer{}}
}

func (m *memoryFile) Create(name string) (source.ParquetFile, error) { return m, nil }
func (m *memoryFile) Open(name string) (source.ParquetFile, error)   { return m, nil }
func (m *memoryFile) Seek(offset int64, whence int) (int64, error)   { return int64(m.buffer.Len()), nil }
func (m *memoryFile) Read(b []byte) (int, error)                     { return m.buffer.Read(b) }
func (m *memoryFile) Write(b []byte) (int, error)                    { return m.buffer.Write(b) }
func (m *memoryFile) Close() error                                   { return nil }
func (m *memoryFile) Bytes() []byte                                  { return m.buffer.Bytes() }

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "none":
		return parquet.CompressionCodec_UNCOMPRESSED
	default:
		return parquet.CompressionCodec_SNAPPY
	}
}

// encodeParquet renders the ranking as a parquet file in memory.
func encodeParquet(req models.SearchRequest, ranking models.Ranking, compression string) ([]byte, error) {
	file := newMemoryFile()
	pw, err := pqwriter.NewParquetWriter(file, new(DealRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	now := time.Now().Unix()
	for i, entry := range ranking.Entries {
		price, _ := entry.Price.Float64()
		original, _ := entry.OriginalAmount.Float64()
		var departure int64
		if !entry.Departure.IsZero() {
			departure = entry.Departure.Unix()
		}
		record := DealRecord{
			Rank:             int32(i + 1),
			Country:          entry.Country,
			Price:            price,
			Currency:         ranking.Currency,
			OriginalPrice:    original,
			OriginalCurrency: entry.OriginalCurrency,
			Airline:          entry.Airline,
			Stops:            int32(entry.Stops),
			Departure:        departure,
			Origin:           req.Origin,
			Destination:      req.Destination,
			TravelDate:       req.DepartureDate,
			ExportedAt:       now,
		}
		if err := pw.Write(record); err != nil {
			return nil, fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}
	return file.Bytes(), nil
}

func writeParquet(path string, req models.SearchRequest, ranking models.Ranking, compression string) error {
	data, err := encodeParquet(req, ranking, compression)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write parquet export: %w", err)
	}
	return nil
}
