package engine

import "github.com/shopspring/decimal"

// roundToStep floors value to the nearest multiple of step, using decimal
// arithmetic so exchange tick/step filters are never violated by float
// noise. A non-positive step returns the value unchanged.
func roundToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	v := decimal.NewFromFloat(value)
	s := decimal.NewFromFloat(step)
	out, _ := v.Div(s).Floor().Mul(s).Float64()
	return out
}
