package selection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Watchlist maps trading dates to the instrument codes selected on that day.
// It is the file-based stand-in for the Store when backtesting from an
// exported selection list.
type Watchlist map[string][]string

// watchlistDateFormat: 导出文件里的日期格式
const watchlistDateFormat = "2006-01-02"

// ParseWatchlist reads the exported selection-list format: one line per
// date, comma-separated, first field the ISO date, remaining fields the
// instrument codes. Blank lines and date-only lines are skipped.
func ParseWatchlist(r io.Reader) (Watchlist, error) {
	list := make(Watchlist)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, ",")
		date := strings.TrimSpace(fields[0])
		if _, err := time.Parse(watchlistDateFormat, date); err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q: %w", line, date, err)
		}

		codes := make([]string, 0, len(fields)-1)
		for _, f := range fields[1:] {
			if code := strings.TrimSpace(f); code != "" {
				codes = append(codes, code)
			}
		}
		if len(codes) == 0 {
			continue
		}

		list[date] = codes
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read watchlist: %w", err)
	}

	return list, nil
}

// LoadWatchlist reads a selection-list file from disk
func LoadWatchlist(path string) (Watchlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open watchlist: %w", err)
	}
	defer f.Close()

	return ParseWatchlist(f)
}

// For returns the codes selected on a date, or nil when none were recorded
func (w Watchlist) For(date time.Time) []string {
	return w[date.Format(watchlistDateFormat)]
}
