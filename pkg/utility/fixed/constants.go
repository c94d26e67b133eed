package fixed

var (
	NegOne  = FromInt64(-1, 0)
	Zero    = FromInt64(0, 0)
	One     = FromInt64(1, 0)
	Two     = FromInt64(2, 0)
	Hundred = FromInt64(100, 0)

	// SecondsPerYear uses a 365 day calendar year.
	SecondsPerYear = FromInt64(365*24*60*60, 0)
)
