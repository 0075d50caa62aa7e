package constants

import "strings"

// Rounds lists the procurement rounds the batch processes, in order.
var Rounds = []string{"1", "2", "3", "4"}

// roundAliases maps lower-cased folder names to a canonical round token.
var roundAliases = map[string]string{
	"r1": "1", "round 1": "1", "round1": "1",
	"r2": "2", "round 2": "2", "round2": "2",
	"r3": "3", "round 3": "3", "round3": "3",
	"r4": "4", "round 4": "4", "round4": "4",
	"r5": "5", "round 5": "5", "round5": "5",

	// fiscal-year folder names used by some districts (e.g. Canton)
	"fy 16-17": "1",
	"fy 17-18": "2",
	"fy 18-19": "3",
}

// yearRounds maps a contract start year to the round it is expected under.
var yearRounds = map[string]string{
	"2015": "1",
	"2016": "1",
	"2017": "1",
	"2018": "2",
	"2019": "3",
	"2022": "4",
}

// NormalizeRound resolves a round folder name to its round token.
// Unknown names report false; they are not an error.
func NormalizeRound(folder string) (string, bool) {
	token, ok := roundAliases[strings.ToLower(strings.TrimSpace(folder))]
	return token, ok
}

// ExpectedRoundForYear returns the round a contract year is normally filed under.
func ExpectedRoundForYear(year string) (string, bool) {
	token, ok := yearRounds[strings.TrimSpace(year)]
	return token, ok
}

// RoundAliases returns a copy of the alias table.
func RoundAliases() map[string]string {
	out := make(map[string]string, len(roundAliases))
	for k, v := range roundAliases {
		out[k] = v
	}
	return out
}
