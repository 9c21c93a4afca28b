package ingest

import (
	"strconv"
	"strings"

	"github.com/spektr-org/insightbot/schema"
)

// Order key strategies.
const (
	StrategyOrderNumber    = "order_number"
	StrategyOrderStartTime = "order_start_time"
)

// ResolveOrderKeys assigns OrderKey on every sale and reports the strategy.
//
// Some POS exports put a table label (001, 테-003) in the order number
// column, which collapses many orders into a handful of keys. When order
// numbers are scarce relative to distinct start timestamps, the timestamp
// becomes the primary key.
func ResolveOrderKeys(sales []schema.Sale) schema.OrderKeyReport {
	numberKeys := make([]string, len(sales))
	timeKeys := make([]string, len(sales))
	numbers := make(map[string]struct{})
	times := make(map[string]struct{})

	for i, s := range sales {
		if n := strings.TrimSpace(s.OrderNumber); n != "" {
			numberKeys[i] = "no:" + n
			numbers[numberKeys[i]] = struct{}{}
		}
		if !s.OrderStartTime.IsZero() {
			timeKeys[i] = "ts:" + s.OrderStartTime.Format("2006-01-02 15:04:05")
			times[timeKeys[i]] = struct{}{}
		}
	}

	dNo, dTs := len(numbers), len(times)
	useTime := dTs > 0 && (dNo == 0 || dNo <= max(100, int(float64(dTs)*0.35)))

	primary, secondary := numberKeys, timeKeys
	strategy := StrategyOrderNumber
	if useTime {
		primary, secondary = timeKeys, numberKeys
		strategy = StrategyOrderStartTime
	}

	keys := make(map[string]struct{})
	for i := range sales {
		key := primary[i]
		if key == "" {
			key = secondary[i]
		}
		if key == "" {
			key = "row:" + strconv.Itoa(i+1)
		}
		sales[i].OrderKey = key
		keys[key] = struct{}{}
	}

	return schema.OrderKeyReport{
		Strategy:               strategy,
		DistinctOrderNumber:    dNo,
		DistinctOrderStartTime: dTs,
		DistinctOrderKey:       len(keys),
	}
}
