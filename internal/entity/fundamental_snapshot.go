package entity

import "time"

// FundamentalSnapshot is one dated observation of financial ratios for a
// security. Rows are never updated; the latest is the one with max DataDate.
type FundamentalSnapshot struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SecurityID uint      `gorm:"not null;uniqueIndex:uq_fundamental_security_date" json:"security_id"`
	Security   *Security `gorm:"foreignKey:SecurityID" json:"-"`
	DataDate   time.Time `gorm:"not null;uniqueIndex:uq_fundamental_security_date" json:"data_date"`

	PERatio       *float64 `json:"pe_ratio,omitempty"`
	PBRatio       *float64 `json:"pb_ratio,omitempty"`
	PSRatio       *float64 `json:"ps_ratio,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`

	ROE             *float64 `gorm:"column:roe" json:"roe,omitempty"`
	ROA             *float64 `gorm:"column:roa" json:"roa,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty"`
	NetMargin       *float64 `json:"net_margin,omitempty"`

	DebtToEquity *float64 `json:"debt_to_equity,omitempty"`
	CurrentRatio *float64 `json:"current_ratio,omitempty"`
	QuickRatio   *float64 `json:"quick_ratio,omitempty"`

	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty"`

	CurrentPrice *float64 `json:"current_price,omitempty"`
	Week52High   *float64 `gorm:"column:week52_high" json:"week52_high,omitempty"`
	Week52Low    *float64 `gorm:"column:week52_low" json:"week52_low,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (FundamentalSnapshot) TableName() string {
	return "fundamental_snapshots"
}

// Metric returns the value of a scored metric by its configuration name.
func (f *FundamentalSnapshot) Metric(name string) *float64 {
	switch name {
	case MetricPERatio:
		return f.PERatio
	case MetricPBRatio:
		return f.PBRatio
	case MetricROE:
		return f.ROE
	case MetricDebtToEquity:
		return f.DebtToEquity
	case MetricCurrentRatio:
		return f.CurrentRatio
	case MetricOperatingMargin:
		return f.OperatingMargin
	case MetricRevenueGrowth:
		return f.RevenueGrowth
	default:
		return nil
	}
}

const (
	MetricPERatio         = "pe_ratio"
	MetricPBRatio         = "pb_ratio"
	MetricROE             = "roe"
	MetricDebtToEquity    = "debt_to_equity"
	MetricCurrentRatio    = "current_ratio"
	MetricOperatingMargin = "operating_margin"
	MetricRevenueGrowth   = "revenue_growth"
)
