package profile

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/csvdash/internal/dataset"
)

// KPI is a headline metric shown above the dashboard.
type KPI struct {
	Name    string `json:"name" yaml:"name"`
	Value   string `json:"value" yaml:"value"`
	Insight string `json:"insight" yaml:"insight"`
}

// KPIs returns the locally computed headline metrics: record count, column
// count and the mean of the first numeric column.
func KPIs(ds *dataset.Dataset, set *Set) []KPI {
	kpis := []KPI{
		{Name: "Total Records", Value: FormatCount(ds.Len()), Insight: "Total number of data points in the dataset"},
		{Name: "Data Dimensions", Value: strconv.Itoa(len(ds.Columns)), Insight: "Number of data attributes available for analysis"},
	}
	for _, c := range set.Columns {
		if c.Type == Numeric && c.Stats != nil {
			kpis = append(kpis, KPI{
				Name:    "Avg " + c.Name,
				Value:   fmt.Sprintf("%.2f", c.Stats.Mean),
				Insight: "Average value across all records",
			})
			break
		}
	}
	return kpis
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
