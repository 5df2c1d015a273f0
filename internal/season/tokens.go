package season

import "fmt"

// Dynamic token kinds accepted in year and week parameters.
const (
	TokenCurrentYear = "current_year"
	TokenLastNYears  = "last_n_years"
	TokenNextNYears  = "next_n_years"
	TokenCurrentWeek = "current_week"
	TokenLastNWeeks  = "last_n_weeks"
)

// MaxTokenSpan bounds N in last_n_*/next_n_* tokens.
const MaxTokenSpan = 50

// Token is a relative time reference such as "last 3 years".
type Token struct {
	Kind  string
	Value int
}

// ExpandYears resolves a year token into concrete ascending years.
//
// last_n_years counts back from the last completed season, so during the
// offseason "last 3 years" does not include the upcoming season.
func ExpandYears(tok Token, c Context) ([]int, error) {
	switch tok.Kind {
	case TokenCurrentYear:
		return []int{c.Year}, nil
	case TokenLastNYears:
		if err := checkSpan(tok); err != nil {
			return nil, err
		}
		end := c.LastCompletedYear()
		return span(end-tok.Value+1, end), nil
	case TokenNextNYears:
		if err := checkSpan(tok); err != nil {
			return nil, err
		}
		return span(c.Year, c.Year+tok.Value-1), nil
	}
	return nil, fmt.Errorf("unknown year token %q", tok.Kind)
}

// ExpandWeeks resolves a week token into concrete ascending weeks.
// Weeks never go below 1; last_n_weeks near the start of a season is
// truncated rather than wrapping into the previous year.
func ExpandWeeks(tok Token, c Context) ([]int, error) {
	switch tok.Kind {
	case TokenCurrentWeek:
		return []int{c.Week}, nil
	case TokenLastNWeeks:
		if err := checkSpan(tok); err != nil {
			return nil, err
		}
		end := c.Week
		if c.Phase.InSeason() {
			end = c.Week - 1
		}
		start := max(end-tok.Value+1, 1)
		if end < start {
			return []int{}, nil
		}
		return span(start, end), nil
	}
	return nil, fmt.Errorf("unknown week token %q", tok.Kind)
}

func checkSpan(tok Token) error {
	if tok.Value < 1 || tok.Value > MaxTokenSpan {
		return fmt.Errorf("%s value must be between 1 and %d, got %d", tok.Kind, MaxTokenSpan, tok.Value)
	}
	return nil
}

func span(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for y := lo; y <= hi; y++ {
		out = append(out, y)
	}
	return out
}
