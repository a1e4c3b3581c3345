package feed

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/danielmmetz/hn-feed/hn"
)

// Order selects how Sort arranges items.
type Order string

const (
	// OrderRank keeps the upstream order.
	OrderRank Order = "rank"
	// OrderTime puts the newest item first.
	OrderTime Order = "time"
	// OrderScore puts the highest score first.
	OrderScore Order = "score"
	// OrderHot ranks by score decayed with age.
	OrderHot Order = "hot"
)

func ParseOrder(s string) (Order, error) {
	switch o := Order(s); o {
	case OrderRank, OrderTime, OrderScore, OrderHot:
		return o, nil
	case "":
		return OrderTime, nil
	default:
		return "", fmt.Errorf("invalid order %q: must be rank, time, score, or hot", s)
	}
}

// Sort returns a sorted copy of items. Ties keep their input order.
func Sort(items []*hn.Item, order Order, now time.Time) []*hn.Item {
	out := cloneItems(items)
	switch order {
	case OrderTime:
		slices.SortStableFunc(out, func(a, b *hn.Item) int {
			return cmpDesc(float64(a.Time), float64(b.Time))
		})
	case OrderScore:
		slices.SortStableFunc(out, func(a, b *hn.Item) int {
			return cmpDesc(float64(a.Score), float64(b.Score))
		})
	case OrderHot:
		nowUnix := now.Unix()
		slices.SortStableFunc(out, func(a, b *hn.Item) int {
			return cmpDesc(HotScore(a, nowUnix), HotScore(b, nowUnix))
		})
	}
	return out
}

// HotScore is the classic HN gravity formula: (score-1) / (ageHours+2)^1.5.
func HotScore(it *hn.Item, now int64) float64 {
	ageHours := math.Max(float64(now-it.Time)/3600.0, 0)
	return float64(it.Score-1) / math.Pow(ageHours+2, 1.5)
}

func cmpDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}
