package constants

import "strings"

// Canonical values for the enum-like record fields. Empty means "not stated".
const (
	LevelPreK       = "PreK"
	LevelElementary = "Elementary"
	LevelMiddle     = "Middle"
	LevelHigh       = "High"
	LevelMultiple   = "Multiple"
	LevelAlt        = "Alt"

	UseAdministrative = "Administrative"
	UseInstructional  = "Instructional"

	HostCloud   = "Cloud"
	HostInstall = "Install"
)

var levelSynonyms = map[string]string{
	"prek":          LevelPreK,
	"pre-k":         LevelPreK,
	"pre k":         LevelPreK,
	"preschool":     LevelPreK,
	"elementary":    LevelElementary,
	"elem":          LevelElementary,
	"primary":       LevelElementary,
	"middle":        LevelMiddle,
	"middle school": LevelMiddle,
	"high":          LevelHigh,
	"high school":   LevelHigh,
	"multiple":      LevelMultiple,
	"all":           LevelMultiple,
	"k-12":          LevelMultiple,
	"alt":           LevelAlt,
	"alternative":   LevelAlt,
}

var useSynonyms = map[string]string{
	"administrative": UseAdministrative,
	"admin":          UseAdministrative,
	"instructional":  UseInstructional,
	"instruction":    UseInstructional,
	"educational":    UseInstructional,
}

var hostSynonyms = map[string]string{
	"cloud":      HostCloud,
	"saas":       HostCloud,
	"web":        HostCloud,
	"web-based":  HostCloud,
	"hosted":     HostCloud,
	"install":    HostInstall,
	"installed":  HostInstall,
	"local":      HostInstall,
	"on-premise": HostInstall,
}

// CanonicalLevel maps an approx_level value onto PreK/Elementary/Middle/High/Multiple/Alt.
// Unrecognized input is returned trimmed but otherwise untouched, with ok=false.
func CanonicalLevel(v string) (string, bool) { return canonicalize(levelSynonyms, v) }

// CanonicalUseType maps a use_type value onto Administrative/Instructional.
func CanonicalUseType(v string) (string, bool) { return canonicalize(useSynonyms, v) }

// CanonicalHostType maps a host_type value onto Cloud/Install.
func CanonicalHostType(v string) (string, bool) { return canonicalize(hostSynonyms, v) }

func canonicalize(table map[string]string, v string) (string, bool) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "", true
	}
	if c, ok := table[strings.ToLower(trimmed)]; ok {
		return c, true
	}
	return trimmed, false
}
