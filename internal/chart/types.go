// Package chart defines the chart entry model and the interfaces shared by the
// fetch, extract and sink stages.
package chart

import "fmt"

// Level bounds for the sort pages.
const (
	MinLevel = 1
	MaxLevel = 20
)

// Header is the column order used by tabular sinks.
var Header = []string{"Name", "Level", "Link"}

// Entry describes one chart listed on a level sort page.
type Entry struct {
	Name  string `json:"name"`
	Level string `json:"level"`
	Link  string `json:"link"`
}

// Row returns the entry in Header order.
func (e Entry) Row() []string {
	return []string{e.Name, e.Level, e.Link}
}

// FormatLevel renders a level as the two-digit form used in URLs and records.
func FormatLevel(level int) (string, error) {
	if level < MinLevel || level > MaxLevel {
		return "", fmt.Errorf("level %d out of range [%d,%d]", level, MinLevel, MaxLevel)
	}
	return fmt.Sprintf("%02d", level), nil
}
