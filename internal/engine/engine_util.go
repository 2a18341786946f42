package engine

import (
	"math"
	"strconv"
	"strings"
)

// ParseLevel reads a typing level sent by a client. Anything that is not a
// positive number becomes DefaultLevel; fractions are truncated.
func ParseLevel(raw string) int {
	return parsePositive(raw, DefaultLevel)
}

// ParseSeconds reads a match length, falling back to def. Lengths above
// MaxMatchSeconds are clamped.
func ParseSeconds(raw string, def int) int {
	return min(parsePositive(raw, def), MaxMatchSeconds)
}

func parsePositive(raw string, def int) int {
	s := strings.TrimSpace(raw)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt32 {
			return def
		}
		n = int(f)
	}
	if n <= 0 {
		return def
	}
	return n
}

// longestTenured picks the player who joined first. Ties go to the smaller id
// so the choice does not depend on map order.
func longestTenured(players map[string]*Player) *Player {
	var oldest *Player
	for _, p := range players {
		if oldest == nil ||
			p.JoinTime.Before(oldest.JoinTime) ||
			(p.JoinTime.Equal(oldest.JoinTime) && p.ID < oldest.ID) {
			oldest = p
		}
	}
	return oldest
}
