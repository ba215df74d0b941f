package domain_test

import (
	"testing"
	"time"

	"github.com/bmartins/futledger/internal/domain"
	"github.com/stretchr/testify/assert"
)

func record(price int64, at time.Time) domain.PriceRecord {
	return domain.PriceRecord{
		Timestamp: at,
		Subject:   "Kylian Mbappé",
		Price:     price,
		Platform:  domain.PlatformPS,
	}
}

func TestComputeTip_FirstRecordEver(t *testing.T) {
	tip := domain.ComputeTip(nil, 1500000)
	assert.Equal(t, domain.TipInsufficientData, tip.Kind)
	assert.Zero(t, tip.Delta)
}

func TestComputeTip_Antisymmetric(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prior := []domain.PriceRecord{record(1000000, at)}

	up := domain.ComputeTip(prior, 1000500)
	assert.Equal(t, domain.TipPriceUp, up.Kind)
	assert.Equal(t, int64(500), up.Delta)
	assert.Equal(t, at, up.ComparedAt)

	down := domain.ComputeTip(prior, 999500)
	assert.Equal(t, domain.TipPriceDown, down.Kind)
	assert.Equal(t, int64(500), down.Delta)

	flat := domain.ComputeTip(prior, 1000000)
	assert.Equal(t, domain.TipStable, flat.Kind)
	assert.Zero(t, flat.Delta)
}

func TestComputeTip_ComparesLastPriorRecord(t *testing.T) {
	// Com vários registros anteriores, só o último conta
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	prior := []domain.PriceRecord{record(900000, t1), record(1200000, t2)}

	tip := domain.ComputeTip(prior, 1000000)
	assert.Equal(t, domain.TipPriceDown, tip.Kind)
	assert.Equal(t, int64(200000), tip.Delta)
	assert.Equal(t, t2, tip.ComparedAt)
}
