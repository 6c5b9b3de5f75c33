package profile

import "strings"

// Relevance tags derived from column names.
const (
	TagFinancial      = "financial"
	TagPerformance    = "performance"
	TagQuantity       = "quantity"
	TagClassification = "classification"
	TagStatus         = "status"
	TagGeographic     = "geographic"
	TagTemporal       = "temporal"
)

var tagKeywords = []struct {
	tag   string
	words []string
}{
	{TagFinancial, []string{"price", "cost", "revenue", "sales", "amount", "value", "profit", "income", "salary"}},
	{TagPerformance, []string{"score", "rating", "performance", "efficiency", "quality"}},
	{TagQuantity, []string{"count", "quantity", "number", "volume", "units"}},
	{TagClassification, []string{"department", "category", "type", "group", "class", "segment"}},
	{TagStatus, []string{"status", "state", "condition", "stage", "phase"}},
	{TagGeographic, []string{"region", "location", "area", "territory", "zone", "country", "city"}},
	{TagTemporal, []string{"date", "time", "year", "month", "day", "period"}},
}

// Tags returns the relevance tags whose keywords appear in the column name.
func Tags(name string) []string {
	n := strings.ToLower(name)
	var out []string
	for _, g := range tagKeywords {
		for _, w := range g.words {
			if strings.Contains(n, w) {
				out = append(out, g.tag)
				break
			}
		}
	}
	return out
}

// HasTag reports whether any column carries tag.
func (s *Set) HasTag(tag string) bool {
	for _, c := range s.Columns {
		for _, t := range c.Tags {
			if t == tag {
				return true
			}
		}
	}
	return false
}
