package repository

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm/clause"

	"main/internal/model"
	"main/pkg/conn"
)

// CandleRow is the persisted form of one market snapshot. Candles are
// idempotent on (market, timestamp): replays of the same minute overwrite.
type CandleRow struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Market    string    `gorm:"size:32;uniqueIndex:idx_market_ts"`
	Timestamp time.Time `gorm:"uniqueIndex:idx_market_ts"`
	Opening   int64
	High      int64
	Low       int64
	Closing   int64
	Volume    int64
	CreatedAt time.Time
}

func (CandleRow) TableName() string {
	return "candles"
}

// Candle stores market snapshots in PostgreSQL.
type Candle struct {
	client *conn.Client
}

// NewCandle migrates the candle table and returns the store.
func NewCandle(client *conn.Client) (*Candle, error) {
	if err := client.Migrate(&CandleRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate candles")
	}
	return &Candle{client: client}, nil
}

// SaveCandles upserts the snapshots by (market, timestamp).
func (c *Candle) SaveCandles(ctx context.Context, snapshots []model.MarketSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	rows := make([]CandleRow, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, CandleRow{
			Market:    s.Market,
			Timestamp: s.Timestamp,
			Opening:   int64(s.Opening),
			High:      int64(s.High),
			Low:       int64(s.Low),
			Closing:   int64(s.Closing),
			Volume:    int64(s.Volume),
		})
	}

	err := c.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "market"}, {Name: "timestamp"}},
			DoUpdates: clause.AssignmentColumns([]string{"opening", "high", "low", "closing", "volume"}),
		}).
		Create(&rows).Error
	if err != nil {
		return errors.Wrap(err, "save candles").With("count", len(rows))
	}
	return nil
}

// LoadCandles returns the snapshots for market within [from, to], oldest first.
func (c *Candle) LoadCandles(ctx context.Context, market string, from, to time.Time) ([]model.MarketSnapshot, error) {
	var rows []CandleRow
	err := c.client.DB().WithContext(ctx).
		Where("market = ? AND timestamp >= ? AND timestamp <= ?", market, from, to).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load candles").With("market", market)
	}

	snapshots := make([]model.MarketSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, model.MarketSnapshot{
			Market:    row.Market,
			Opening:   model.Price(row.Opening),
			High:      model.Price(row.High),
			Low:       model.Price(row.Low),
			Closing:   model.Price(row.Closing),
			Volume:    model.Amount(row.Volume),
			Timestamp: row.Timestamp,
		})
	}
	return snapshots, nil
}
