package week

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"sync"
	"time"
)

// DefaultMaxWeeksAhead 默认可提前规划的周数
const DefaultMaxWeeksAhead = 8

// Clock 返回当前时间
type Clock func() time.Time

// Option 可提交周的下拉选项
type Option struct {
	Value  string    `json:"value"`
	Label  string    `json:"label"`
	Offset int       `json:"offset"`
	Start  time.Time `json:"start"`
}

// Calculator 周计算器
// 负责回答"任务属于哪一周"以及"某周是否仍可提交/修改"
type Calculator struct {
	clock    Clock
	location *time.Location

	mu            sync.RWMutex
	maxWeeksAhead int
	cutoff        time.Duration
}

// CalculatorOption 计算器配置项
type CalculatorOption func(*Calculator)

// WithClock 设置时钟
func WithClock(clock Clock) CalculatorOption {
	return func(c *Calculator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLocation 设置时区
func WithLocation(loc *time.Location) CalculatorOption {
	return func(c *Calculator) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithMaxWeeksAhead 设置最大提前周数
func WithMaxWeeksAhead(n int) CalculatorOption {
	return func(c *Calculator) {
		if n >= 0 {
			c.maxWeeksAhead = n
		}
	}
}

// WithSubmissionCutoff 设置提交截止偏移 (相对周一 00:00)
func WithSubmissionCutoff(d time.Duration) CalculatorOption {
	return func(c *Calculator) {
		c.cutoff = d
	}
}

// NewCalculator 创建周计算器
func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		clock:         time.Now,
		location:      time.UTC,
		maxWeeksAhead: DefaultMaxWeeksAhead,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now 返回计算器时钟的当前时间
func (c *Calculator) Now() time.Time {
	return c.clock()
}

// Location 返回计算器使用的时区
func (c *Calculator) Location() *time.Location {
	return c.location
}

// MaxWeeksAhead 返回最大提前周数
func (c *Calculator) MaxWeeksAhead() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxWeeksAhead
}

// SetMaxWeeksAhead 热更新最大提前周数
func (c *Calculator) SetMaxWeeksAhead(n int) {
	if n < 0 {
		return
	}
	c.mu.Lock()
	c.maxWeeksAhead = n
	c.mu.Unlock()
}

// SubmissionCutoff 返回提交截止偏移
func (c *Calculator) SubmissionCutoff() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cutoff
}

// SetSubmissionCutoff 热更新提交截止偏移
func (c *Calculator) SetSubmissionCutoff(d time.Duration) {
	c.mu.Lock()
	c.cutoff = d
	c.mu.Unlock()
}

// CurrentWeek 当前所在的 ISO 周
func (c *Calculator) CurrentWeek() Week {
	return FromTime(c.clock(), c.location)
}

// NextWeek 当前周的下一周
func (c *Calculator) NextWeek() Week {
	return c.CurrentWeek().Next()
}

// Deadline 返回某周的提交截止时刻
func (c *Calculator) Deadline(w Week) time.Time {
	return w.Start(c.location).Add(c.SubmissionCutoff())
}

// IsSubmissionOpen 当前时间严格早于该周截止时刻时返回 true
// 截止时刻本身视为已关闭
func (c *Calculator) IsSubmissionOpen(w Week) bool {
	return c.clock().Before(c.Deadline(w))
}

// AvailableWeeksForSubmission 返回可提交周的惰性序列
// 序列只能遍历一次,第二次遍历不产生任何元素
func (c *Calculator) AvailableWeeksForSubmission() iter.Seq[Option] {
	current := c.CurrentWeek()
	maxAhead := c.MaxWeeksAhead()

	var once sync.Once
	return func(yield func(Option) bool) {
		consumed := true
		once.Do(func() { consumed = false })
		if consumed {
			return
		}
		for offset := 0; offset <= maxAhead; offset++ {
			w := current.AddWeeks(offset)
			if !c.IsSubmissionOpen(w) {
				continue
			}
			if !yield(c.option(w, offset)) {
				return
			}
		}
	}
}

// AvailableWeeks 返回可提交周列表
func (c *Calculator) AvailableWeeks() []Option {
	return slices.Collect(c.AvailableWeeksForSubmission())
}

// option 构造下拉选项
func (c *Calculator) option(w Week, offset int) Option {
	start := w.Start(c.location)
	return Option{
		Value:  w.String(),
		Label:  fmt.Sprintf("%s (%s – %s)", TierLabel(offset), start.Format("Jan 2"), w.End(c.location).Format("Jan 2")),
		Offset: offset,
		Start:  start,
	}
}

// TierLabel 返回相对当前周偏移量的描述
func TierLabel(offset int) string {
	switch {
	case offset <= 0:
		return "Current week"
	case offset == 1:
		return "Next week"
	case offset <= 4:
		return fmt.Sprintf("+%d weeks", offset)
	default:
		months := int(math.Round(float64(offset) / 4.345))
		if months <= 1 {
			return "~1 month"
		}
		return fmt.Sprintf("~%d months", months)
	}
}
