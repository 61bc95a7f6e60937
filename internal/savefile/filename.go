package savefile

import (
	"regexp"
	"strings"
)

const (
	// Extension is appended to every generated file name.
	Extension = ".json"

	defaultName   = "Cards"
	maxNameLength = 100
	replacement   = "-"
)

var (
	unsafeChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	repeated      = regexp.MustCompile(`-{2,}`)
	reservedNames = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
)

// FileName derives a portable file name from a box title.
func FileName(title string) string {
	name := unsafeChars.ReplaceAllString(title, replacement)
	name = repeated.ReplaceAllString(name, replacement)
	name = strings.Trim(name, ". ")
	if len(name) > 1 {
		name = strings.Trim(name, replacement)
	}
	if name == "" || name == replacement {
		name = defaultName
	}
	if reservedNames.MatchString(name) {
		name += replacement
	}
	if r := []rune(name); len(r) > maxNameLength {
		name = strings.TrimRight(string(r[:maxNameLength]), ". ")
	}
	return name + Extension
}
