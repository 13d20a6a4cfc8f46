package table

// Opt is an optional float64. The zero value is missing. Arithmetic on Opt
// propagates missingness rather than treating it as zero.
type Opt struct {
	Float64 float64
	Valid   bool
}

// Some wraps a present value.
func Some(v float64) Opt { return Opt{Float64: v, Valid: true} }

// Mul returns a×b, missing if either side is.
func (a Opt) Mul(b Opt) Opt {
	if !a.Valid || !b.Valid {
		return Opt{}
	}
	return Some(a.Float64 * b.Float64)
}

// Sub returns a−b, missing if either side is.
func (a Opt) Sub(b Opt) Opt {
	if !a.Valid || !b.Valid {
		return Opt{}
	}
	return Some(a.Float64 - b.Float64)
}

// Scale returns a×k, missing if a is.
func (a Opt) Scale(k float64) Opt {
	if !a.Valid {
		return Opt{}
	}
	return Some(a.Float64 * k)
}

// Cell converts the value back to a table cell: nil when missing.
func (a Opt) Cell() any {
	if !a.Valid {
		return nil
	}
	return a.Float64
}
