package archive

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jfmartin/lotoscope/internal/rules"
)

// DateLayout is the canonical ISO-8601 date form used for draw dates.
const DateLayout = "2006-01-02"

// TierResult is one prize tier's outcome in an official draw.
type TierResult struct {
	Rank    int     `json:"rank"`
	Winners int     `json:"winners"`
	Payout  float64 `json:"payout"`
}

// Draw is one official draw. Rows are created by the ingestor and never
// mutated afterwards.
type Draw struct {
	Game       rules.Game
	Date       time.Time // UTC midnight
	Main       []int
	Special    []int
	Tiers      []TierResult
	IngestedAt *string
}

// PlayedGrid is a recorded ticket, settled once the matching draw arrives.
type PlayedGrid struct {
	ID         int64
	Game       rules.Game
	DatePlayed time.Time
	Main       []int
	Special    []int
	ModelTag   string
	Cost       float64
	GrossGain  float64
	NetGain    float64
	TierHit    int // tier rank, 0 when nothing was won
	Settled    bool
	CreatedAt  *string
}

// StoredReport is a generated report persisted for the local server.
type StoredReport struct {
	ID           int64
	Game         rules.Game
	Kind         string
	PeriodID     string
	Payload      string // JSON
	BodyMarkdown string
	GeneratedAt  *string
}

// Stats contains aggregate archive statistics for one game.
type Stats struct {
	Draws       int
	FirstDraw   string
	LastDraw    string
	PlayedGrids int
	Settled     int
	Reports     int
}

// NormalizeDate truncates a timestamp to UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// encodeNumbers renders a slot group as "1,12,23".
func encodeNumbers(nums []int) string {
	if len(nums) == 0 {
		return ""
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// decodeNumbers parses "1,12,23" back into ints.
func decodeNumbers(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("decoding numbers %q: %w", s, err)
		}
		nums[i] = n
	}
	return nums, nil
}
