package insights

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

const (
	DefaultWindow = 6
	TopN          = 5
	// consistency needs more than this many records
	minConsistencyRecords = 5
)

// Ledger is the read side the engine consumes.
type Ledger interface {
	List(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error)
	Aggregate(ctx context.Context, filter expense.Filter, groupBy expense.GroupBy, granularity expense.Granularity) ([]expense.Bucket, error)
	InBase(e *expense.Expense) (decimal.Decimal, error)
	BaseCurrency() string
}

type Engine struct {
	ledger Ledger
	window int
	logger *slog.Logger
}

func NewEngine(ledger Ledger, window int, logger *slog.Logger) *Engine {
	if window < 2 {
		window = DefaultWindow
	}
	return &Engine{ledger: ledger, window: window, logger: logger}
}

func (e *Engine) Summarize(ctx context.Context, period expense.Granularity, now time.Time) (*Summary, error) {
	start := period.Start(now)
	end := period.Shift(start, 1).Add(-time.Nanosecond)
	current := expense.Filter{From: &start, To: &end}

	expenses, err := e.ledger.List(ctx, current)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Period:   period,
		Key:      period.Key(start),
		From:     start,
		To:       end,
		Currency: e.ledger.BaseCurrency(),
		Total:    decimal.Zero,
		Count:    len(expenses),
	}

	daily := make(map[time.Time]decimal.Decimal)
	weekdays := make(map[time.Weekday]int)
	for _, exp := range expenses {
		amount, err := e.ledger.InBase(exp)
		if err != nil {
			return nil, err
		}
		s.Total = s.Total.Add(amount)
		d := expense.Day.Start(exp.Date)
		daily[d] = daily[d].Add(amount)
		weekdays[exp.Date.Weekday()]++
	}

	s.ActiveDays = len(daily)
	if s.Count > 0 {
		s.Average = s.Total.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
	}

	elapsed, length := dayCounts(start, end, now)
	s.DailyAverage = s.Total.Div(decimal.NewFromInt(int64(elapsed))).Round(2)
	if period != expense.Day {
		projection := s.DailyAverage.Mul(decimal.NewFromInt(int64(length))).Round(2)
		s.Projection = &projection
	}

	s.TopCategories, err = e.topCategories(ctx, current, s.Total)
	if err != nil {
		return nil, err
	}

	s.Trend, err = e.trend(ctx, period, start, end)
	if err != nil {
		return nil, err
	}
	s.Change = change(s.Trend)
	s.Prediction = predict(s.Trend, s.Key)

	if s.Count > minConsistencyRecords {
		s.Consistency = consistency(daily)
	}
	s.BusiestWeekday = busiestWeekday(weekdays)
	s.BiggestDay = biggestDay(daily)

	e.logger.Debug("insights computed", "period", period, "key", s.Key, "count", s.Count)
	return s, nil
}

func (e *Engine) topCategories(ctx context.Context, filter expense.Filter, total decimal.Decimal) ([]CategoryShare, error) {
	buckets, err := e.ledger.Aggregate(ctx, filter, expense.GroupByCategory, expense.Month)
	if err != nil {
		return nil, err
	}
	if len(buckets) > TopN {
		buckets = buckets[:TopN]
	}
	shares := make([]CategoryShare, 0, len(buckets))
	for _, b := range buckets {
		share := decimal.Zero
		if total.IsPositive() {
			share = b.Total.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
		}
		shares = append(shares, CategoryShare{Category: b.Key, Total: b.Total, Count: b.Count, Share: share})
	}
	return shares, nil
}

// trend returns one bucket per sub-period of the trailing window, zero-filled, oldest first.
func (e *Engine) trend(ctx context.Context, period expense.Granularity, start, end time.Time) ([]expense.Bucket, error) {
	windowStart := period.Shift(start, -(e.window - 1))
	buckets, err := e.ledger.Aggregate(ctx, expense.Filter{From: &windowStart, To: &end}, expense.GroupByPeriod, period)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]expense.Bucket, len(buckets))
	for _, b := range buckets {
		byKey[b.Key] = b
	}

	out := make([]expense.Bucket, 0, e.window)
	for i := 0; i < e.window; i++ {
		s := period.Shift(windowStart, i)
		key := period.Key(s)
		b, ok := byKey[key]
		if !ok {
			b = expense.Bucket{Key: key, Total: decimal.Zero}
		}
		b.Start = s
		out = append(out, b)
	}
	return out, nil
}

func dayCounts(start, end, now time.Time) (elapsed, length int) {
	length = int(math.Round(end.Sub(start).Hours() / 24))
	if length < 1 {
		length = 1
	}
	if now.After(end) {
		return length, length
	}
	elapsed = int(now.Sub(start).Hours()/24) + 1
	if elapsed < 1 {
		elapsed = 1
	}
	if elapsed > length {
		elapsed = length
	}
	return elapsed, length
}

// change is the percent difference between the current and the previous sub-period.
func change(trend []expense.Bucket) *decimal.Decimal {
	if len(trend) < 2 {
		return nil
	}
	prev := trend[len(trend)-2].Total
	if !prev.IsPositive() {
		return nil
	}
	c := trend[len(trend)-1].Total.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1)
	return &c
}

// predict fits a least-squares line through the completed periods of the trend (all but
// the last) and evaluates it at the current period. Negative forecasts clamp to zero.
func predict(trend []expense.Bucket, key string) Prediction {
	p := Prediction{Key: key, Amount: decimal.Zero, Slope: decimal.Zero}
	if len(trend) < 2 {
		return p
	}
	points := trend[:len(trend)-1]
	p.Points = len(points)

	ys := make([]float64, len(points))
	for i, b := range points {
		ys[i] = b.Total.InexactFloat64()
	}
	slope, intercept := linearFit(ys)
	forecast := intercept + slope*float64(len(points))
	if forecast < 0 {
		forecast = 0
	}
	p.Amount = decimal.NewFromFloat(forecast).Round(2)
	p.Slope = decimal.NewFromFloat(slope).Round(2)
	return p
}

func linearFit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if n == 1 {
		return 0, ys[0]
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// consistency scores how evenly spending is spread over active days: 100 × (1 − CV).
func consistency(daily map[time.Time]decimal.Decimal) *Consistency {
	if len(daily) == 0 {
		return nil
	}
	values := make([]float64, 0, len(daily))
	var sum float64
	for _, v := range daily {
		f := v.InexactFloat64()
		values = append(values, f)
		sum += f
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return nil
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	cv := math.Sqrt(variance) / mean

	score := math.Max(0, 100*(1-cv))
	score = math.Round(score*10) / 10
	return &Consistency{Score: score, Grade: Grade(score)}
}

func busiestWeekday(counts map[time.Weekday]int) string {
	best, bestCount := time.Sunday, 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	if bestCount == 0 {
		return ""
	}
	return best.String()
}

func biggestDay(daily map[time.Time]decimal.Decimal) *DayTotal {
	var best *DayTotal
	for d, total := range daily {
		if best == nil || total.GreaterThan(best.Total) || (total.Equal(best.Total) && d.Before(best.Date)) {
			best = &DayTotal{Date: d, Total: total}
		}
	}
	return best
}
