package registry

// ColumnID is the stable key of a column definition.
type ColumnID string

// Source is the data source family a column reads from. The compiler
// switches over Source to pick a compilation shape; every value must be
// handled there.
type Source string

const (
	SourcePlayEvents      Source = "play-events"
	SourceSeasonLog       Source = "season-log"
	SourceCareerLog       Source = "career-log"
	SourceProjection      Source = "projection"
	SourceBettingMarket   Source = "betting-market"
	SourceStaticAttribute Source = "static-attribute"
	SourceTeamAggregate   Source = "team-aggregate"
)

// Sources lists every Source in declaration order.
var Sources = []Source{
	SourcePlayEvents,
	SourceSeasonLog,
	SourceCareerLog,
	SourceProjection,
	SourceBettingMarket,
	SourceStaticAttribute,
	SourceTeamAggregate,
}

// Volatility is a column's data-freshness class; it selects a cache TTL.
type Volatility string

const (
	VolatilityLiveMarket      Volatility = "live_market"
	VolatilityInSeasonStats   Volatility = "in_season_stats"
	VolatilitySeasonAggregate Volatility = "season_aggregate"
	VolatilityProjection      Volatility = "projection"
	VolatilityHistorical      Volatility = "historical"
	VolatilityStatic          Volatility = "static"
)

// JoinKey is a key a column's rows are identified by.
type JoinKey string

const (
	KeyPid  JoinKey = "pid"
	KeyYear JoinKey = "year"
	KeyWeek JoinKey = "week"
)

// ValueKind is the semantic type of a column's output, used to validate
// filter values before they are interpolated.
type ValueKind string

const (
	KindNumber ValueKind = "number"
	KindText   ValueKind = "text"
)

// ParamName names a column parameter.
type ParamName string

const (
	ParamYear       ParamName = "year"
	ParamWeek       ParamName = "week"
	ParamSeasType   ParamName = "seas_type"
	ParamDown       ParamName = "dwn"
	ParamMotion     ParamName = "motion"
	ParamPlayAction ParamName = "play_action"
	ParamRateType   ParamName = "rate_type"
	ParamYearOffset ParamName = "year_offset"
	ParamCareerYear ParamName = "career_year"
	ParamMarketType ParamName = "market_type"
	ParamSourceID   ParamName = "source_id"
	ParamTimeType   ParamName = "time_type"
	ParamAsOf       ParamName = "as_of"
)

// ParamAliases maps accepted spellings onto canonical names.
var ParamAliases = map[string]ParamName{
	"down": ParamDown,
}

// ParamKind is the semantic type of a parameter.
type ParamKind int

const (
	// KindYears is a set of seasons: an int, a list, or a dynamic token.
	KindYears ParamKind = iota
	// KindWeeks is a set of weeks: an int, a list, or a dynamic token.
	KindWeeks
	// KindIntSet is a set of integers bounded by Min/Max.
	KindIntSet
	// KindBool is a boolean flag.
	KindBool
	// KindEnum is one string out of Enum.
	KindEnum
	// KindInt is a single integer bounded by Min/Max.
	KindInt
	// KindOffset is a year offset: an int or an inclusive [lo, hi] range.
	KindOffset
	// KindRange is an inclusive [lo, hi] integer range bounded by Min/Max.
	KindRange
	// KindTimestamp is an absolute instant, normalized to epoch milliseconds.
	KindTimestamp
)

func (k ParamKind) String() string {
	switch k {
	case KindYears:
		return "years"
	case KindWeeks:
		return "weeks"
	case KindIntSet:
		return "int_set"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindInt:
		return "int"
	case KindOffset:
		return "offset"
	case KindRange:
		return "range"
	case KindTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// ParamSpec declares one accepted parameter.
type ParamSpec struct {
	Kind     ParamKind
	Required bool
	// Default is applied when the caller omits the parameter. It is a plain
	// Go value in the same shape a caller would send (string, int, []int).
	Default any
	Enum    []string
	Min     int
	Max     int
}

// Rate types.
const RatePerGame = "per_game"

// PlayRole is one per-play role a player can hold (ball carrier, target,
// passer, fumbler). A play-event column aggregates Value over the rows where
// PidColumn is the player.
type PlayRole struct {
	PidColumn string
	Value     string
	Where     []string
}

// TeamField is a per team-game measure computed in the raw team CTE.
type TeamField struct {
	Name string
	Expr string
}

// Definition is an immutable column definition.
type Definition struct {
	ID          ColumnID
	Description string
	Source      Source
	Params      map[ParamName]ParamSpec
	JoinKeys    []JoinKey
	Volatility  Volatility
	Kind        ValueKind

	// Table is the relation the column reads from.
	Table string
	// Field is the output field name inside the column's CTE or joined table.
	Field string
	// Agg is the aggregate applied over Table rows (SUM, MIN, MAX, AVG).
	Agg string
	// Expr is the per-row expression aggregated by Agg. For static
	// attributes it is the full select expression against player.
	Expr string
	// Where holds fixed predicates applied to Table rows.
	Where []string

	// Roles is set for play-event columns; more than one role produces a
	// row-source union.
	Roles []PlayRole

	// TeamFields and Flatten are set for team aggregates: TeamFields are
	// computed per team-game, Flatten aggregates them per team.
	TeamFields []TeamField
	Flatten    string
	// Countable reports whether per_game normalization is meaningful.
	Countable bool

	// CareerTable/CareerField are used by career-log columns when a
	// career_year window is requested.
	CareerTable string
	CareerField string
}

// Accepts reports whether the column accepts parameter p.
func (d *Definition) Accepts(p ParamName) bool {
	_, ok := d.Params[p]
	return ok
}

// HasKey reports whether k is one of the column's join keys.
func (d *Definition) HasKey(k JoinKey) bool {
	for _, jk := range d.JoinKeys {
		if jk == k {
			return true
		}
	}
	return false
}
