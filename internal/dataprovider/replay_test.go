package dataprovider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/pkg/exception"
)

const _seriesFixture = `[
  {
    "market": "KRW-BTC",
    "date_time": "2020-04-30T14:51:00",
    "opening_price": 11288000.0,
    "high_price": 11372000.0,
    "low_price": 11286000.0,
    "closing_price": 11372000.0,
    "acc_volume": 2.25811273
  },
  {
    "market": "KRW-BTC",
    "date_time": "2020-04-30T14:52:00",
    "opening_price": 11372000.0,
    "high_price": 11372000.0,
    "low_price": 11292000.0,
    "closing_price": 11292000.0,
    "acc_volume": 1.11833262
  }
]`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.json")
	require.NoError(t, os.WriteFile(path, []byte(_seriesFixture), 0o644))
	return path
}

func TestLoadSeriesFile(t *testing.T) {
	series, err := LoadSeriesFile(writeFixture(t))
	require.NoError(t, err)
	require.Len(t, series, 2)

	first := series[0]
	assert.Equal(t, "KRW-BTC", first.Market)
	assert.Equal(t, model.Price(11_288_000), first.Opening)
	assert.Equal(t, model.Price(11_372_000), first.Closing)
	assert.Equal(t, model.Amount(225_811_273), first.Volume)
	assert.Equal(t, 2020, first.Timestamp.Year())

	assert.Equal(t, model.Price(11_292_000), series[1].Closing)
}

func TestLoadSeriesFileErrors(t *testing.T) {
	_, err := LoadSeriesFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o644))
	_, err = LoadSeriesFile(empty)
	assert.ErrorIs(t, err, exception.ErrDataEmptySeries)
}

func TestReplayServesOneCandlePerTick(t *testing.T) {
	series, err := LoadSeriesFile(writeFixture(t))
	require.NoError(t, err)

	provider, err := NewReplay(series)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Remaining())

	for i := 0; i < 2; i++ {
		infos, err := provider.GetInfo()
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, series[i].Closing, infos[0].Closing)
	}

	_, err = provider.GetInfo()
	assert.ErrorIs(t, err, exception.ErrDataExhausted)
	// Exhaustion is sticky.
	_, err = provider.GetInfo()
	assert.ErrorIs(t, err, exception.ErrDataExhausted)
	assert.Equal(t, 0, provider.Remaining())
}

func TestNewReplayRejectsEmptySeries(t *testing.T) {
	_, err := NewReplay(nil)
	assert.ErrorIs(t, err, exception.ErrDataEmptySeries)
}
