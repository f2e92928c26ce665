package usage

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"headshot/internal/domain"
)

// recordFromMetadata extracts the usage fields; the provider hands numbers
// back in whatever shape its JSON decoder chose.
func recordFromMetadata(id string, tier domain.PlanTier, md domain.Metadata) domain.UsageRecord {
	rec := domain.UsageRecord{IdentityID: id, Tier: tier}
	rec.GenerationsUsed = parseCount(md[domain.MetaGenerationsUsed])
	rec.LastResetDate = parseTime(md[domain.MetaLastResetDate])
	return rec
}

func applyRecord(md domain.Metadata, rec domain.UsageRecord) domain.Metadata {
	out := md.Clone()
	out[domain.MetaGenerationsUsed] = rec.GenerationsUsed
	if rec.LastResetDate != nil {
		out[domain.MetaLastResetDate] = rec.LastResetDate.UTC().Format(time.RFC3339)
	}
	return out
}

func parseCount(v any) int {
	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case float64:
		n = x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		n = f
	default:
		return 0
	}
	if n < 0 || math.IsNaN(n) {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func parseTime(v any) *time.Time {
	switch x := v.(type) {
	case time.Time:
		t := x.UTC()
		return &t
	case *time.Time:
		if x == nil {
			return nil
		}
		t := x.UTC()
		return &t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, x); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}
