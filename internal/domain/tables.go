package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// civList is the civilization table in Relic API index order (alphabetical
// over the standard civs; indices verified against 26=Lithuanians and
// 41=Teutons).
var civList = []string{
	"Armenians", "Aztecs", "Bengalis", "Berbers", "Bohemians", "Britons",
	"Bulgarians", "Burgundians", "Burmese", "Byzantines", "Celts", "Chinese",
	"Cumans", "Dravidians", "Ethiopians", "Franks", "Georgians", "Goths",
	"Gurjaras", "Hindustanis", "Huns", "Incas", "Italians", "Japanese",
	"Khmer", "Koreans", "Lithuanians", "Magyars", "Malay", "Malians",
	"Mayans", "Mongols", "Persians", "Poles", "Portuguese", "Romans",
	"Saracens", "Sicilians", "Slavs", "Spanish", "Tatars", "Teutons",
	"Turks", "Vietnamese", "Vikings",
}

// modeNames maps Relic matchtype IDs to display modes.
var modeNames = map[int]string{
	0: "Custom",
	1: "RM 1v1", 2: "RM 1v1", 3: "RM 2v2", 4: "RM 3v3", 5: "RM 4v4",
	6: "RM 1v1", 7: "RM 2v2", 8: "RM 3v3", 9: "RM 4v4",
	10: "FFA",
	26: "EW 1v1", 27: "EW 2v2", 28: "EW 3v3", 29: "EW 4v4",
	60: "Custom DM 1v1", 61: "Custom DM Team",
	66: "RM 1v1", 67: "RM 2v2", 68: "RM 3v3", 69: "RM 4v4",
	86: "RM 1v1", 87: "RM 2v2", 88: "RM 3v3", 89: "RM 4v4",
	120: "Custom", 121: "Custom", 122: "Custom", 123: "Custom",
	124: "Custom", 125: "Custom",
}

// CivName returns the civilization name for a Relic civilization ID, or
// "Civ N" for IDs beyond the known table.
func CivName(id int) string {
	if id >= 0 && id < len(civList) {
		return civList[id]
	}
	return fmt.Sprintf("Civ %d", id)
}

// ModeName returns the display mode for a Relic matchtype ID, or "Mode N"
// for unknown IDs.
func ModeName(id int) string {
	if name, ok := modeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Mode %d", id)
}

var rmsSuffixRe = regexp.MustCompile(`(?i)\.rms\d*$`)

// CleanMapName strips random-map script suffixes and title-cases the result.
// "my map" is the generator's custom-map placeholder and keeps its casing.
func CleanMapName(name string) string {
	if name == "" {
		return "Unknown"
	}
	name = rmsSuffixRe.ReplaceAllString(name, "")
	if strings.ToLower(name) != "my map" {
		name = titleCase(name)
	}
	return strings.TrimSpace(name)
}

// titleCase capitalizes the first letter of each space-separated word and
// lower-cases the rest, matching how the map names are normalized upstream.
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// PlayerWon decides whether a player won. Ranked games carry an elo change;
// unranked games carry an explicit outcome (1 = win); the team flag is the
// last resort.
func PlayerWon(eloChange *int, outcome *int, teamWon bool) bool {
	if eloChange != nil && *eloChange != 0 {
		return *eloChange > 0
	}
	if outcome != nil {
		return *outcome == 1
	}
	return teamWon
}
