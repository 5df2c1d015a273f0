package compiler

import (
	"slices"
	"time"

	"github.com/roach88/dataview/internal/registry"
	"github.com/roach88/dataview/internal/season"
)

// CacheMetadata tells the caller how long a compiled view's results stay
// fresh.
type CacheMetadata struct {
	// CacheTTL is in milliseconds.
	CacheTTL int64 `json:"cache_ttl" yaml:"cache_ttl"`
	// CacheExpireAt is an absolute epoch-ms deadline, set only when a column
	// pins a future point in time.
	CacheExpireAt *int64 `json:"cache_expire_at" yaml:"cache_expire_at"`
}

// TTLPolicy maps volatility classes to TTLs.
type TTLPolicy struct {
	LiveMarket      time.Duration
	InSeason        time.Duration
	OffSeason       time.Duration
	SeasonAggregate time.Duration
	Projection      time.Duration
	Historical      time.Duration
	Static          time.Duration
}

// DefaultTTLPolicy returns the stock TTL bands.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		LiveMarket:      time.Hour,
		InSeason:        6 * time.Hour,
		OffSeason:       12 * time.Hour,
		SeasonAggregate: 6 * time.Hour,
		Projection:      6 * time.Hour,
		Historical:      7 * 24 * time.Hour,
		Static:          7 * 24 * time.Hour,
	}
}

func (p TTLPolicy) forClass(v registry.Volatility, sc season.Context) time.Duration {
	switch v {
	case registry.VolatilityLiveMarket:
		return p.LiveMarket
	case registry.VolatilityInSeasonStats:
		if sc.Phase.InSeason() {
			return p.InSeason
		}
		return p.OffSeason
	case registry.VolatilitySeasonAggregate:
		return p.SeasonAggregate
	case registry.VolatilityProjection:
		return p.Projection
	case registry.VolatilityHistorical:
		return p.Historical
	}
	return p.Static
}

// instanceTTL returns the TTL of one instance and, for a future as_of pin,
// the pin itself.
func (p TTLPolicy) instanceTTL(inst *instance, sc season.Context) (time.Duration, *int64) {
	if asOf, ok := inst.params.Timestamp(registry.ParamAsOf); ok {
		if asOf <= sc.Now.UnixMilli() {
			return p.Historical, nil
		}
		return p.forClass(inst.def.Volatility, sc), &asOf
	}
	if len(inst.years) > 0 && slices.Max(inst.years) < sc.Year {
		return p.Historical, nil
	}
	return p.forClass(inst.def.Volatility, sc), nil
}

// metadata is the minimum TTL over every instance, plus the earliest future
// pin.
func (p TTLPolicy) metadata(insts []*instance, sc season.Context) CacheMetadata {
	if len(insts) == 0 {
		return CacheMetadata{CacheTTL: p.Static.Milliseconds()}
	}
	var expireAt *int64
	ttl, _ := p.instanceTTL(insts[0], sc)
	for _, inst := range insts {
		d, pin := p.instanceTTL(inst, sc)
		ttl = min(ttl, d)
		if pin != nil && (expireAt == nil || *pin < *expireAt) {
			expireAt = pin
		}
	}
	return CacheMetadata{CacheTTL: ttl.Milliseconds(), CacheExpireAt: expireAt}
}
