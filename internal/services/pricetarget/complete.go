package pricetarget

import (
	"github.com/shopspring/decimal"
	"github.com/ternarybob/tickerlens/internal/models"
)

var (
	bandUp     = decimal.RequireFromString("1.15")
	bandDown   = decimal.RequireFromString("0.85")
	meanLow    = decimal.RequireFromString("0.90")
	meanHigh   = decimal.RequireFromString("1.10")
	oneSided   = decimal.RequireFromString("1.1")
	lastResort = decimal.RequireFromString("1.2")
	clampAbove = decimal.RequireFromString("1.05")
	clampBelow = decimal.RequireFromString("0.95")
)

// Complete repairs a partial provider answer into a full high/low band
// around the consensus and clamps it against currentPrice when positive.
// Every output is rounded half away from zero to cents; nil stays nil.
func Complete(in *models.PriceTarget, currentPrice float64) *models.PriceTarget {
	if in == nil {
		return nil
	}

	high := toDecimal(in.TargetHigh)
	low := toDecimal(in.TargetLow)
	mean := toDecimal(in.TargetMean)
	median := toDecimal(in.TargetMedian)

	if mean == nil && median != nil {
		m := *median
		mean = &m
	}

	switch {
	case high == nil && low == nil && mean != nil:
		h, l := mean.Mul(bandUp), mean.Mul(bandDown)
		high, low = &h, &l
	case high != nil && low == nil:
		l := high.Div(oneSided)
		if mean != nil {
			l = decimal.Min(mean.Mul(meanLow), l)
		}
		low = &l
	case low != nil && high == nil:
		h := low.Mul(oneSided)
		if mean != nil {
			h = decimal.Max(mean.Mul(meanHigh), h)
		}
		high = &h
	}

	if high != nil && low == nil {
		l := high.Div(lastResort)
		low = &l
	}
	if low != nil && high == nil {
		h := low.Mul(lastResort)
		high = &h
	}

	if currentPrice > 0 {
		price := decimal.NewFromFloat(currentPrice)
		if high != nil && high.LessThan(price) {
			h := price.Mul(clampAbove)
			high = &h
		}
		if low != nil && low.GreaterThan(price) {
			l := price.Mul(clampBelow)
			low = &l
		}
	}

	return &models.PriceTarget{
		Source:           in.Source,
		TargetHigh:       toCents(high),
		TargetLow:        toCents(low),
		TargetMean:       toCents(mean),
		TargetMedian:     toCents(median),
		NumberOfAnalysts: in.NumberOfAnalysts,
	}
}

func toDecimal(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

func toCents(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.Round(2).InexactFloat64()
	return &f
}
