package fixed

import "slices"

func Sum(points []Point) Point {
	sum := Zero
	for _, point := range points {
		sum = sum.Add(point)
	}
	return sum
}

func Mean(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	return Sum(points).DivInt(len(points))
}

// Variance is the population variance around mean.
func Variance(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}

	sum := Zero
	for _, point := range points {
		diff := point.Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}

	return sum.DivInt(len(points))
}

func SampleVariance(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}

	sum := Zero
	for _, point := range points {
		diff := point.Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}

	return sum.DivInt(len(points) - 1)
}

func StdDev(points []Point, mean Point) Point {
	return Variance(points, mean).Sqrt()
}

func SampleStdDev(points []Point, mean Point) Point {
	return SampleVariance(points, mean).Sqrt()
}

func Min(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	m := points[0]
	for _, point := range points[1:] {
		m = m.Min(point)
	}
	return m
}

func Max(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	m := points[0]
	for _, point := range points[1:] {
		m = m.Max(point)
	}
	return m
}

// Median does not modify points.
func Median(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}

	sorted := slices.Clone(points)
	slices.SortFunc(sorted, Point.Cmp)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).DivInt(2)
}

// Returns computes simple period returns. Periods with a zero base are skipped.
func Returns(points []Point) []Point {
	if len(points) < 2 {
		return nil
	}
	returns := make([]Point, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		if points[i-1].IsZero() {
			continue
		}
		returns = append(returns, points[i].Div(points[i-1]).Sub(One))
	}
	return returns
}
