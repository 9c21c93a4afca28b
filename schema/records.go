package schema

import "time"

// ============================================================================
// FACT RECORDS — Immutable rows produced by ingest, consumed by store + signals
// ============================================================================

// Review is one normalized review row. Date is the zero time when the
// source text did not contain a valid calendar date.
type Review struct {
	ID       int64
	Branch   string
	DateText string
	Date     time.Time
	Nickname string
	Content  string
	WaitTime string
}

// Dated reports whether the review has a parsed date.
func (r Review) Dated() bool { return !r.Date.IsZero() }

// Length is the derived review_length column (rune count).
func (r Review) Length() int { return len([]rune(r.Content)) }

// Values returns the row in ReviewsTable column order. NULLs are nil.
func (r Review) Values() []any {
	var date, year, month, day any
	if r.Dated() {
		date = r.Date
		year = int64(r.Date.Year())
		month = int64(r.Date.Month())
		day = int64(r.Date.Day())
	}
	return []any{
		r.ID,
		r.Branch,
		r.DateText,
		date,
		year,
		month,
		day,
		r.Nickname,
		r.Content,
		r.WaitTime,
		int64(r.Length()),
	}
}

// Sale is one normalized point-of-sale line.
type Sale struct {
	RowID          int64
	ReportName     string
	SheetName      string
	Branch         string
	OrderBaseDate  time.Time
	OrderStartTime time.Time
	OrderNumber    string
	OrderKey       string
	Channel        string
	PaymentStatus  string
	Category       string
	ProductName    string
	OptionName     string
	TaxType        string
	Quantity       int64

	ProductPrice    float64
	OptionPrice     float64
	ProductDiscount float64
	OrderDiscount   float64
	LineTotal       float64
	ActualSales     float64
	NetSales        float64
	VAT             float64
}

// SalesDate is the calendar day of OrderBaseDate, zero when unknown.
func (s Sale) SalesDate() time.Time {
	if s.OrderBaseDate.IsZero() {
		return time.Time{}
	}
	y, m, d := s.OrderBaseDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Values returns the row in SalesTable column order. NULLs are nil.
func (s Sale) Values() []any {
	var baseDate, salesDate, year, month, day any
	if !s.OrderBaseDate.IsZero() {
		baseDate = s.OrderBaseDate
		salesDate = s.SalesDate()
		year = int64(s.OrderBaseDate.Year())
		month = int64(s.OrderBaseDate.Month())
		day = int64(s.OrderBaseDate.Day())
	}
	var startTime, hour any
	if !s.OrderStartTime.IsZero() {
		startTime = s.OrderStartTime
		hour = int64(s.OrderStartTime.Hour())
	}
	return []any{
		s.RowID,
		s.ReportName,
		s.SheetName,
		s.Branch,
		baseDate,
		salesDate,
		year,
		month,
		day,
		startTime,
		hour,
		s.OrderNumber,
		s.OrderKey,
		s.Channel,
		s.PaymentStatus,
		s.Category,
		s.ProductName,
		s.OptionName,
		s.TaxType,
		s.Quantity,
		s.ProductPrice,
		s.OptionPrice,
		s.ProductDiscount,
		s.OrderDiscount,
		s.LineTotal,
		s.ActualSales,
		s.NetSales,
		s.VAT,
	}
}

// OrderKeyReport records which order-key strategy a sales load used.
type OrderKeyReport struct {
	Strategy               string `json:"strategy"`
	DistinctOrderNumber    int    `json:"distinct_order_number"`
	DistinctOrderStartTime int    `json:"distinct_order_start_time"`
	DistinctOrderKey       int    `json:"distinct_order_key"`
}
