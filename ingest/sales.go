package ingest

import (
	"bytes"
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spektr-org/insightbot/schema"
	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// SALES WORKBOOK — POS Excel exports → schema.Sale records
// ============================================================================
// Flow: fetch bytes → decrypt (EXCEL_PASSWORD) or fall back to a
// "-decrypted" sibling → pick the best sheet → map headers → normalize
// amounts with decimal arithmetic → derive order keys.
// ============================================================================

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte("\xd0\xcf\x11\xe0\xa1\xb1\x1a\xe1")

	preferredSheets = []string{"상품 주문 상세내역", "주문", "매출"}
	amountNoise     = regexp.MustCompile(`[^\d.\-]`)
	compactDate     = regexp.MustCompile(`^\d{8}$`)
)

// User-facing load failures.
var (
	ErrEncryptedNoPassword = eris.New("매출 엑셀 파일이 암호화되어 있습니다. EXCEL_PASSWORD 환경변수를 설정해 주세요.")
	ErrWrongPassword       = eris.New("EXCEL_PASSWORD가 올바르지 않아 매출 엑셀 복호화에 실패했습니다.")
	ErrNoSalesRows         = eris.New("매출 리포트에서 사용할 수 있는 데이터 행을 찾지 못했습니다.")
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"2006.01.02 15:04:05",
	"2006.01.02",
	"20060102",
}

var clockLayouts = []string{"15:04:05", "15:04"}

// SalesLoader reads POS workbooks into sales datasets.
type SalesLoader struct {
	fetch         *Fetcher
	defaultBranch string
	logger        *zap.Logger
}

// NewSalesLoader creates a loader. Rows with no branch get defaultBranch.
func NewSalesLoader(fetch *Fetcher, defaultBranch string, logger *zap.Logger) *SalesLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fetch == nil {
		fetch = &Fetcher{}
	}
	return &SalesLoader{fetch: fetch, defaultBranch: defaultBranch, logger: logger}
}

// Load fetches path, decrypts it when needed and normalizes the best sheet.
func (l *SalesLoader) Load(ctx context.Context, path, password string) (store.Dataset, error) {
	password = strings.TrimSpace(password)

	data, err := l.fetch.Fetch(ctx, path)
	if err != nil {
		return store.Dataset{}, err
	}

	encrypted := bytes.HasPrefix(data, oleMagic)
	activePath := path
	opts := excelize.Options{}

	if encrypted {
		switch {
		case password != "":
			opts.Password = password
		default:
			fallback := siblingPath(path, "-decrypted")
			if strings.HasSuffix(strings.TrimSuffix(baseName(path), extOf(path)), "-decrypted") {
				fallback = ""
			}
			if fallback == "" || !l.fetch.Exists(ctx, fallback) {
				return store.Dataset{}, ErrEncryptedNoPassword
			}
			fb, err := l.fetch.Fetch(ctx, fallback)
			if err != nil || !looksLikeExcel(fb) {
				return store.Dataset{}, ErrEncryptedNoPassword
			}
			l.logger.Info("🔓 ingest: using decrypted sibling", zap.String("path", fallback))
			if bytes.HasPrefix(fb, oleMagic) {
				return store.Dataset{}, ErrEncryptedNoPassword
			}
			data, activePath = fb, fallback
		}
	}

	f, err := excelize.OpenReader(bytes.NewReader(data), opts)
	if err != nil {
		if opts.Password != "" {
			return store.Dataset{}, eris.Wrap(ErrWrongPassword, err.Error())
		}
		return store.Dataset{}, eris.Wrapf(err, "매출 엑셀을 읽지 못했습니다: %s", path)
	}
	defer f.Close()

	sheet, rows, err := selectSheet(f)
	if err != nil {
		return store.Dataset{}, err
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	sales, extras := NormalizeSalesRows(rows, SheetMeta{
		ReportName:    baseName(activePath),
		SheetName:     sheet,
		DefaultBranch: l.defaultBranch,
		Date1904:      date1904,
	})
	if len(sales) == 0 {
		return store.Dataset{}, ErrNoSalesRows
	}
	report := ResolveOrderKeys(sales)

	table := schema.SalesTable()
	l.logger.Info("📊 ingest: sales loaded",
		zap.String("path", path),
		zap.String("sheet", sheet),
		zap.Int("rows", len(sales)),
		zap.String("order_key_strategy", report.Strategy))

	return store.Dataset{
		Table: table,
		Sales: sales,
		Source: store.SourceInfo{
			Path:         path,
			ActivePath:   activePath,
			SheetName:    sheet,
			Rows:         len(sales),
			Columns:      append(table.ColumnKeys(), extras...),
			Encrypted:    encrypted,
			FallbackUsed: activePath != path,
			OrderKey:     &report,
		},
	}, nil
}

func looksLikeExcel(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic) || bytes.HasPrefix(data, oleMagic)
}

func extOf(path string) string {
	name := baseName(path)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// ============================================================================
// SHEET SELECTION
// ============================================================================

type sheetScore struct {
	preferred int
	mapped    int
	area      int
	name      string
	rows      [][]string
}

func (a sheetScore) beats(b sheetScore) bool {
	if a.preferred != b.preferred {
		return a.preferred > b.preferred
	}
	if a.mapped != b.mapped {
		return a.mapped > b.mapped
	}
	if a.area != b.area {
		return a.area > b.area
	}
	return a.name > b.name
}

// selectSheet ranks sheets by preferred name, mapped header hits, then
// non-empty area.
func selectSheet(f *excelize.File) (string, [][]string, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return "", nil, eris.New("엑셀 시트가 비어 있습니다.")
	}

	var scores []sheetScore
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			continue
		}
		scores = append(scores, scoreSheet(name, rows))
	}
	if len(scores) == 0 {
		return "", nil, eris.New("엑셀 시트 파싱 실패")
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].beats(scores[j]) })
	return scores[0].name, scores[0].rows, nil
}

func scoreSheet(name string, rows [][]string) sheetScore {
	s := sheetScore{name: name, rows: rows}
	for _, token := range preferredSheets {
		if strings.Contains(name, token) {
			s.preferred = 1
			break
		}
	}
	if len(rows) == 0 {
		return s
	}
	for _, h := range rows[0] {
		if _, ok := schema.MapSalesHeader(h); ok {
			s.mapped++
		}
	}

	nonEmptyRows := 0
	nonEmptyCols := make(map[int]bool)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		nonEmptyRows++
		for i, v := range row {
			if strings.TrimSpace(v) != "" {
				nonEmptyCols[i] = true
			}
		}
	}
	s.area = nonEmptyRows * max(len(nonEmptyCols), 1)
	return s
}

// ============================================================================
// ROW NORMALIZATION
// ============================================================================

// SheetMeta carries per-sheet context into row normalization.
type SheetMeta struct {
	ReportName    string
	SheetName     string
	DefaultBranch string
	Date1904      bool
}

// NormalizeSalesRows converts a header row plus data rows into sales.
// It returns the records and the safe identifiers of unmapped columns.
// Order keys are not assigned; see ResolveOrderKeys.
func NormalizeSalesRows(rows [][]string, meta SheetMeta) ([]schema.Sale, []string) {
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	mapping := make([]string, len(header))
	seen := make(map[string]bool)
	var extras []string
	for i, raw := range header {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		key, ok := schema.MapSalesHeader(raw)
		if !ok {
			key = schema.SafeIdentifier(schema.NormalizeHeader(raw), i)
		}
		unique := key
		for n := 2; seen[unique]; n++ {
			unique = key + "_" + strconv.Itoa(n)
		}
		seen[unique] = true
		if ok && unique == key {
			mapping[i] = key
		} else {
			extras = append(extras, unique)
		}
	}
	sort.Strings(extras)

	var sales []schema.Sale
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		cells := make(map[string]string, len(mapping))
		for i, v := range row {
			if i < len(mapping) && mapping[i] != "" {
				cells[mapping[i]] = strings.TrimSpace(v)
			}
		}

		sale, keep := buildSale(cells, meta)
		if !keep {
			continue
		}
		sale.RowID = int64(len(sales) + 1)
		sales = append(sales, sale)
	}
	return sales, extras
}

func buildSale(cells map[string]string, meta SheetMeta) (schema.Sale, bool) {
	s := schema.Sale{
		ReportName:    meta.ReportName,
		SheetName:     meta.SheetName,
		Branch:        cells["branch_name"],
		OrderNumber:   cells["order_number"],
		Channel:       cells["order_channel"],
		PaymentStatus: cells["payment_status"],
		Category:      cells["category"],
		ProductName:   cells["product_name"],
		OptionName:    cells["option_name"],
		TaxType:       cells["tax_type"],
	}

	productPrice := parseAmount(cells["product_price"])
	optionPrice := parseAmount(cells["option_price"])
	productDiscount := parseAmount(cells["product_discount"])
	orderDiscount := parseAmount(cells["order_discount"])
	actual := parseAmount(cells["actual_sales_amount"])

	if s.OrderNumber == "" && s.ProductName == "" && actual.IsZero() {
		return schema.Sale{}, false
	}
	if s.Branch == "" {
		s.Branch = meta.DefaultBranch
	}

	qty := int64(math.RoundToEven(parseAmount(cells["quantity"]).InexactFloat64()))
	if qty <= 0 {
		qty = 1
	}
	s.Quantity = qty

	lineTotal := productPrice.Add(optionPrice).
		Mul(decimal.NewFromInt(qty)).
		Sub(productDiscount).
		Sub(orderDiscount)
	if actual.IsZero() {
		actual = lineTotal
	}

	s.ProductPrice = productPrice.InexactFloat64()
	s.OptionPrice = optionPrice.InexactFloat64()
	s.ProductDiscount = productDiscount.InexactFloat64()
	s.OrderDiscount = orderDiscount.InexactFloat64()
	s.LineTotal = lineTotal.InexactFloat64()
	s.ActualSales = actual.InexactFloat64()
	s.NetSales = s.ActualSales
	s.VAT = parseAmount(cells["vat_amount"]).InexactFloat64()

	s.OrderBaseDate = parseTimestamp(cells["order_base_date"], meta.Date1904, time.Time{})
	s.OrderStartTime = parseTimestamp(cells["order_start_time"], meta.Date1904, s.OrderBaseDate)
	return s, true
}

// parseAmount reads "12,000원", "-500" or raw numbers; garbage is zero.
func parseAmount(raw string) decimal.Decimal {
	cleaned := amountNoise.ReplaceAllString(raw, "")
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseTimestamp reads Excel serials or text timestamps. Time-of-day only
// values are placed on base's calendar day, and dropped without one.
func parseTimestamp(raw string, date1904 bool, base time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil && !compactDate.MatchString(raw) {
		switch {
		case serial >= 1:
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				return t.Round(time.Second)
			}
		case serial >= 0 && !base.IsZero():
			secs := int(math.Round(serial * 86400))
			return onDay(base, secs/3600, secs/60%60, secs%60)
		}
		return time.Time{}
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	if !base.IsZero() {
		for _, layout := range clockLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return onDay(base, t.Hour(), t.Minute(), t.Second())
			}
		}
	}
	return time.Time{}
}

func onDay(day time.Time, h, m, s int) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, s, 0, time.UTC)
}
