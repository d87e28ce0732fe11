package week

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidWeek 周字符串格式错误
var ErrInvalidWeek = errors.New("invalid ISO week")

var weekPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// Week ISO 周 (周一为一周的开始)
type Week struct {
	Year   int
	Number int
}

// FromTime 返回 t 在 loc 时区下所属的 ISO 周
func FromTime(t time.Time, loc *time.Location) Week {
	if loc == nil {
		loc = time.UTC
	}
	year, number := t.In(loc).ISOWeek()
	return Week{Year: year, Number: number}
}

// ParseWeek 解析 YYYY-W## 格式的周字符串
func ParseWeek(s string) (Week, error) {
	m := weekPattern.FindStringSubmatch(s)
	if m == nil {
		return Week{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	year, _ := strconv.Atoi(m[1])
	number, _ := strconv.Atoi(m[2])
	if number < 1 || number > weeksInYear(year) {
		return Week{}, fmt.Errorf("%w: %q has no week %d", ErrInvalidWeek, s, number)
	}
	return Week{Year: year, Number: number}, nil
}

// MustParse 解析周字符串,失败时 panic (仅用于常量和测试)
func MustParse(s string) Week {
	w, err := ParseWeek(s)
	if err != nil {
		panic(err)
	}
	return w
}

// String 返回 YYYY-W## 格式
func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Number)
}

// IsZero 是否为零值
func (w Week) IsZero() bool {
	return w.Year == 0 && w.Number == 0
}

// Start 返回该周周一 00:00 在 loc 时区下的时刻
// 1 月 4 日总是落在第 1 周
func (w Week) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (w.Number-1)*7)
}

// End 返回该周周日的日期 (当天 00:00)
func (w Week) End(loc *time.Location) time.Time {
	return w.Start(loc).AddDate(0, 0, 6)
}

// AddWeeks 返回 n 周之后的周,跨年时与 FromTime 保持一致
func (w Week) AddWeeks(n int) Week {
	start := w.Start(time.UTC).AddDate(0, 0, 7*n)
	return FromTime(start, time.UTC)
}

// Next 返回下一周
func (w Week) Next() Week {
	return w.AddWeeks(1)
}

// Before 比较两个周的先后
func (w Week) Before(other Week) bool {
	if w.Year != other.Year {
		return w.Year < other.Year
	}
	return w.Number < other.Number
}

// MarshalText 实现 encoding.TextMarshaler
func (w Week) MarshalText() ([]byte, error) {
	if w.IsZero() {
		return []byte{}, nil
	}
	return []byte(w.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (w *Week) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*w = Week{}
		return nil
	}
	parsed, err := ParseWeek(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// weeksInYear 返回 ISO 年的周数 (52 或 53)
func weeksInYear(year int) int {
	_, n := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return n
}
