package profile

func columnQuality(c Column) string {
	switch {
	case c.NullPercentage > 50:
		return "poor"
	case c.NullPercentage > 20:
		return "fair"
	case c.UniqueCount == 1:
		return "poor"
	case c.UniqueCount == c.NonNull && c.NonNull > 100:
		return "excellent"
	default:
		return "good"
	}
}

// useful is false for mostly-null columns, constants and identifier-like text.
func useful(c Column) bool {
	if c.NullPercentage > 80 || c.UniqueCount == 1 {
		return false
	}
	if c.Type == Text && c.UniqueCount == c.NonNull && c.NonNull > 50 {
		return false
	}
	return true
}

func overallQuality(cols []Column) string {
	if len(cols) == 0 {
		return "Poor"
	}
	var sum float64
	for _, c := range cols {
		switch c.Quality {
		case "excellent":
			sum += 4
		case "good":
			sum += 3
		case "fair":
			sum += 2
		default:
			sum++
		}
	}
	avg := sum / float64(len(cols))
	switch {
	case avg >= 3.5:
		return "Excellent"
	case avg >= 2.5:
		return "Good"
	case avg >= 1.5:
		return "Fair"
	default:
		return "Poor"
	}
}

func analysisTypes(cols []Column) []string {
	var nums, cats int
	for _, c := range cols {
		if !c.Useful {
			continue
		}
		switch c.Type {
		case Numeric:
			nums++
		case Categorical:
			cats++
		}
	}
	var out []string
	if nums >= 2 {
		out = append(out, "correlation")
	}
	if nums >= 1 {
		out = append(out, "statistical")
	}
	if cats >= 1 {
		out = append(out, "categorical")
	}
	if nums >= 1 && cats >= 1 {
		out = append(out, "comparative")
	}
	if len(out) == 0 {
		out = []string{"descriptive"}
	}
	return out
}
