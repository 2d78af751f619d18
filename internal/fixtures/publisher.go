package fixtures

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/techstore/techstore-api/internal/analytics"
	"github.com/techstore/techstore-api/internal/storage"
)

const parquetContentType = "application/vnd.apache.parquet"

type Publisher struct {
	store storage.ObjectStore
	log   *slog.Logger
}

type PublishedTable struct {
	Table   string
	Key     string
	Rows    int
	Bytes   int64
	Removed int
}

func NewPublisher(store storage.ObjectStore, logger *slog.Logger) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{store: store, log: logger}, nil
}

// Publish writes each gold table as a single part and removes parts left by
// an earlier snapshot, so readers see exactly the new data.
func (p *Publisher) Publish(ctx context.Context, snapshot Snapshot) ([]PublishedTable, error) {
	customers, err := EncodeParquet(snapshot.Customers)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", analytics.TableCustomerAnalytics, err)
	}
	products, err := EncodeParquet(snapshot.Products)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", analytics.TableProductPerformance, err)
	}
	sales, err := EncodeParquet(snapshot.Sales)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", analytics.TableSalesMetrics, err)
	}

	parts := []struct {
		table string
		data  []byte
		rows  int
	}{
		{table: analytics.TableCustomerAnalytics, data: customers, rows: len(snapshot.Customers)},
		{table: analytics.TableProductPerformance, data: products, rows: len(snapshot.Products)},
		{table: analytics.TableSalesMetrics, data: sales, rows: len(snapshot.Sales)},
	}

	published := make([]PublishedTable, 0, len(parts))
	for _, part := range parts {
		result, err := p.publishTable(ctx, part.table, part.data)
		if err != nil {
			return nil, err
		}
		result.Rows = part.rows
		p.log.Info(
			"published gold table snapshot",
			slog.String("table", result.Table),
			slog.String("key", result.Key),
			slog.Int("rows", result.Rows),
			slog.Int64("bytes", result.Bytes),
			slog.Int("removed_parts", result.Removed),
		)
		published = append(published, result)
	}
	return published, nil
}

func (p *Publisher) publishTable(ctx context.Context, table string, data []byte) (PublishedTable, error) {
	key, err := storage.BuildTablePartPath(table, 0)
	if err != nil {
		return PublishedTable{}, err
	}
	info, err := p.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: parquetContentType})
	if err != nil {
		return PublishedTable{}, fmt.Errorf("put %s: %w", key, err)
	}

	prefix, err := storage.TablePrefix(table)
	if err != nil {
		return PublishedTable{}, err
	}
	existing, err := p.store.List(ctx, prefix)
	if err != nil {
		return PublishedTable{}, fmt.Errorf("list %s: %w", prefix, err)
	}
	removed := 0
	for _, obj := range existing {
		if obj.Key == key {
			continue
		}
		if err := p.store.Delete(ctx, obj.Key); err != nil {
			return PublishedTable{}, fmt.Errorf("delete stale part %s: %w", obj.Key, err)
		}
		removed++
	}

	size := info.Size
	if size == 0 {
		size = int64(len(data))
	}
	return PublishedTable{Table: table, Key: key, Bytes: size, Removed: removed}, nil
}
