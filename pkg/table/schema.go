package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Schema lists the columns that get typed. Every name also matches its
// event-prefixed camelCase variant ("endDate" matches "eventEndDate").
type Schema struct {
	Numeric     []string
	IntDatetime []string
	StrDatetime []string
	Bool        []string
	Drop        []string
}

// DefaultSchema returns the column lists for Gamma, Data and CLOB payloads.
func DefaultSchema() Schema {
	return Schema{
		Numeric: []string{
			"bestAsk", "bestBid", "best_ask", "best_bid", "fee_rate_bps",
			"full_accuracy_value", "lastTradePrice", "liquidity", "liquidityAmm",
			"liquidityNum", "lowerBound", "matched_amount", "min_order_size",
			"new_tick_size", "old_tick_size", "oneDayPriceChange",
			"oneHourPriceChange", "oneMonthPriceChange", "oneWeekPriceChange",
			"oneYearPriceChange", "original_size", "price", "rewardsMaxSpread",
			"rewardsMinSize", "size", "spread", "tick_size", "upperBound",
			"volume", "volume1mo", "volume1moAmm", "volume1moClob", "volume1wk",
			"volume1wkAmm", "volume1wkClob", "volume1yr", "volume1yrAmm",
			"volume1yrClob", "volume24hr", "volumeNum",
		},
		IntDatetime: []string{"timestamp"},
		StrDatetime: []string{
			"acceptingOrdersTimestamp", "closedTime", "createdAt", "creationDate",
			"endDate", "endDateIso", "eventStartTime", "expiration",
			"gameStartTime", "matchtime", "last_update", "startDate",
			"startDateIso", "startTime", "umaEndDate", "updatedAt",
		},
		Bool: []string{
			"active", "approved", "archived", "clearBookOnStart", "closed",
			"competitive", "cyom", "deploying", "feesEnabled", "fpmmLive",
			"funded", "hasReviewedDates", "holdingRewardsEnabled",
			"manualActivation", "negRiskOther", "notificationsEnabled",
			"pagerDutyNotificationEnabled", "pendingDeployment", "ready",
			"readyForCron", "restricted", "rfqEnabled", "wideFormat",
		},
		Drop: []string{"icon", "image"},
	}
}

// ClobTokenIDsColumn holds a JSON-encoded array of token ids in Gamma markets.
const ClobTokenIDsColumn = "clobTokenIds"

type columnKind int

const (
	kindNone columnKind = iota
	kindNumeric
	kindIntDatetime
	kindStrDatetime
	kindBool
	kindDrop
)

// compile expands every list with its event-prefixed variants. Column names
// are compared after camelCase conversion.
func (s Schema) compile() map[string]columnKind {
	kinds := make(map[string]columnKind)
	add := func(names []string, kind columnKind) {
		for _, n := range names {
			for _, v := range []string{n, SnakeToCamel(n), SnakeToCamel("event_" + n)} {
				if _, taken := kinds[v]; !taken || kind == kindIntDatetime {
					kinds[v] = kind
				}
			}
		}
	}
	add(s.Numeric, kindNumeric)
	add(s.StrDatetime, kindStrDatetime)
	add(s.Bool, kindBool)
	add(s.Drop, kindDrop)
	add(s.IntDatetime, kindIntDatetime)
	return kinds
}

// Apply renames columns to camelCase, drops the Drop columns and coerces
// typed columns. The input table is not modified.
func (s Schema) Apply(t *Table) *Table {
	kinds := s.compile()

	renamed := make([]string, len(t.Columns))
	out := New()
	for i, c := range t.Columns {
		renamed[i] = SnakeToCamel(c)
		if kinds[renamed[i]] != kindDrop {
			out.addColumn(renamed[i])
		}
	}

	for _, r := range t.Records {
		row := make(Record, len(r))
		filled := make(map[string]bool, len(r))
		for i, c := range t.Columns {
			v, ok := r[c]
			if !ok {
				continue
			}
			name := renamed[i]
			kind := kinds[name]
			if kind == kindDrop {
				continue
			}
			// snake and camel spellings of one column collapse; the first
			// non-nil value wins.
			if filled[name] || (v == nil && hasKey(row, name)) {
				continue
			}
			row[name] = coerce(name, kind, v)
			filled[name] = v != nil
		}
		out.Records = append(out.Records, row)
	}

	return out
}

func hasKey(r Record, name string) bool {
	_, ok := r[name]
	return ok
}

func coerce(name string, kind columnKind, v any) any {
	switch kind {
	case kindNumeric:
		return ToDecimal(v)
	case kindIntDatetime:
		return millisToTime(v)
	case kindStrDatetime:
		return ParseTime(v)
	case kindBool:
		return toBool(v)
	}
	if name == ClobTokenIDsColumn {
		return parseTokenIDs(v)
	}
	return v
}

// SnakeToCamel converts snake_case to lowerCamelCase. Names without an
// underscore are returned unchanged.
func SnakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(strings.ToLower(parts[0]))
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// ToDecimal coerces a JSON value to a nullable decimal. Values that are not
// numeric become invalid (null) rather than errors.
func ToDecimal(v any) decimal.NullDecimal {
	switch n := v.(type) {
	case decimal.NullDecimal:
		return n
	case decimal.Decimal:
		return decimal.NewNullDecimal(n)
	case json.Number:
		return parseDecimal(string(n))
	case string:
		return parseDecimal(strings.TrimSpace(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(n))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(n)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(n))
	default:
		return decimal.NullDecimal{}
	}
}

func parseDecimal(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// millisToTime converts a Unix millisecond value; invalid values become nil.
func millisToTime(v any) any {
	d := ToDecimal(v)
	if !d.Valid {
		return nil
	}
	return time.UnixMilli(d.Decimal.IntPart()).UTC()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"January 2, 2006",
}

// ParseTime coerces a datetime value to UTC. Strings are tried against the
// layouts the APIs use; numbers and digit strings are Unix seconds, or
// milliseconds when too large to be seconds. Anything else becomes nil.
func ParseTime(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case json.Number, float64, int, int64:
		return unixToTime(ToDecimal(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if d := parseDecimal(s); d.Valid {
			return unixToTime(d)
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
	}
	return nil
}

func unixToTime(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	n := d.Decimal.IntPart()
	if n > 1e11 || n < -1e11 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case nil:
		return false
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return b != ""
		}
		return parsed
	case json.Number:
		f, err := b.Float64()
		return err == nil && f != 0
	case float64:
		return b != 0
	default:
		return true
	}
}

// parseTokenIDs decodes the JSON-encoded token id list of a Gamma market.
func parseTokenIDs(v any) any {
	switch ids := v.(type) {
	case nil:
		return nil
	case []string:
		return ids
	case []any:
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, fmt.Sprint(id))
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(ids), &out); err != nil {
			return v
		}
		return out
	default:
		return v
	}
}
