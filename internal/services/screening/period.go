package screening

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"RiskScreen/internal/domain/models"
)

// periodPattern accepts YYYY, YYYY_FY, YYYY_Y, YYYY_Qn and YYYY_Hn.
var periodPattern = regexp.MustCompile(`^(\d{4})(?:[_-](FY|Y|Q[1-4]|H[1-2]))?$`)

// Period is a parsed period key.
type Period struct {
	Key     string
	Year    int
	Quarter int // 1..4 for quarterly keys, 0 otherwise
	Ordinal int // year*12 + closing month; larger is more recent
}

// ParsePeriod parses a period key into a totally ordered form.
func ParsePeriod(key string) (Period, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	m := periodPattern.FindStringSubmatch(k)
	if m == nil {
		return Period{}, fmt.Errorf("%w: %q", ErrUnorderablePeriod, key)
	}
	year, _ := strconv.Atoi(m[1])
	p := Period{Key: key, Year: year}
	month := 12
	switch suffix := m[2]; {
	case strings.HasPrefix(suffix, "Q"):
		p.Quarter = int(suffix[1] - '0')
		month = p.Quarter * 3
	case strings.HasPrefix(suffix, "H"):
		month = int(suffix[1]-'0') * 6
	}
	p.Ordinal = year*12 + month
	return p, nil
}

// QuarterKey formats the quarterly period key for a year.
func QuarterKey(year, quarter int) string {
	return fmt.Sprintf("%d_Q%d", year, quarter)
}

// Classify keeps annual rows for ModeAnnual and all others for ModeInterim.
// An unknown mode selects nothing.
func Classify(rows []models.ReportRow, mode models.Mode) []models.ReportRow {
	out := make([]models.ReportRow, 0, len(rows))
	for _, r := range rows {
		switch mode {
		case models.ModeAnnual:
			if r.IsAnnual() {
				out = append(out, r)
			}
		case models.ModeInterim:
			if !r.IsAnnual() {
				out = append(out, r)
			}
		}
	}
	return out
}

// ParseMode converts a raw string to a mode.
func ParseMode(s string) (models.Mode, bool) {
	switch models.Mode(strings.ToLower(strings.TrimSpace(s))) {
	case models.ModeAnnual:
		return models.ModeAnnual, true
	case models.ModeInterim:
		return models.ModeInterim, true
	default:
		return "", false
	}
}
