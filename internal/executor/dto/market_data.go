package dto

import "time"

// FundamentalRecord is one symbol's fundamentals as returned by the market
// data source, normalised to the units the scoring thresholds use.
type FundamentalRecord struct {
	Symbol   string    `json:"symbol" validate:"required,uppercase"`
	Name     string    `json:"name"`
	Sector   string    `json:"sector"`
	Industry string    `json:"industry"`
	DataDate time.Time `json:"data_date" validate:"required"`

	MarketCap *float64 `json:"market_cap,omitempty" validate:"omitempty,gte=0"`

	PERatio       *float64 `json:"pe_ratio,omitempty"`
	PBRatio       *float64 `json:"pb_ratio,omitempty"`
	PSRatio       *float64 `json:"ps_ratio,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty" validate:"omitempty,gte=0"`

	ROE             *float64 `json:"roe,omitempty"`
	ROA             *float64 `json:"roa,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty" validate:"omitempty,gte=-10,lte=10"`
	NetMargin       *float64 `json:"net_margin,omitempty" validate:"omitempty,gte=-10,lte=10"`

	DebtToEquity *float64 `json:"debt_to_equity,omitempty" validate:"omitempty,gte=0"`
	CurrentRatio *float64 `json:"current_ratio,omitempty" validate:"omitempty,gte=0"`
	QuickRatio   *float64 `json:"quick_ratio,omitempty" validate:"omitempty,gte=0"`

	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty"`

	CurrentPrice *float64 `json:"current_price,omitempty" validate:"omitempty,gt=0"`
	Week52High   *float64 `json:"week52_high,omitempty" validate:"omitempty,gt=0"`
	Week52Low    *float64 `json:"week52_low,omitempty" validate:"omitempty,gt=0"`
}

// QuoteSummaryResponse is the subset of the quoteSummary payload we read.
type QuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []QuoteSummaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type QuoteSummaryResult struct {
	Price struct {
		LongName           string   `json:"longName"`
		ShortName          string   `json:"shortName"`
		RegularMarketPrice RawValue `json:"regularMarketPrice"`
		MarketCap          RawValue `json:"marketCap"`
	} `json:"price"`
	SummaryDetail struct {
		TrailingPE                   RawValue `json:"trailingPE"`
		ForwardPE                    RawValue `json:"forwardPE"`
		PriceToSalesTrailing12Months RawValue `json:"priceToSalesTrailing12Months"`
		DividendYield                RawValue `json:"dividendYield"`
		FiftyTwoWeekHigh             RawValue `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow              RawValue `json:"fiftyTwoWeekLow"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics struct {
		PriceToBook RawValue `json:"priceToBook"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		CurrentPrice     RawValue `json:"currentPrice"`
		ReturnOnEquity   RawValue `json:"returnOnEquity"`
		ReturnOnAssets   RawValue `json:"returnOnAssets"`
		OperatingMargins RawValue `json:"operatingMargins"`
		ProfitMargins    RawValue `json:"profitMargins"`
		DebtToEquity     RawValue `json:"debtToEquity"`
		CurrentRatio     RawValue `json:"currentRatio"`
		QuickRatio       RawValue `json:"quickRatio"`
		RevenueGrowth    RawValue `json:"revenueGrowth"`
		EarningsGrowth   RawValue `json:"earningsGrowth"`
	} `json:"financialData"`
	AssetProfile struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"assetProfile"`
}

// RawValue is the {"raw": 1.23, "fmt": "1.23"} wrapper used by the API.
// Raw is nil when the field is absent or empty.
type RawValue struct {
	Raw *float64 `json:"raw"`
}
