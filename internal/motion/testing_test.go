package motion

// constantFrame returns a width x height frame filled with v.
func constantFrame(width, height int, v float64) *Frame {
	f := NewFrame(width, height)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

// constantSequence returns n identical constant frames.
func constantSequence(n, width, height int, v float64) Sequence {
	seq := make(Sequence, n)
	for i := range seq {
		seq[i] = constantFrame(width, height, v)
	}
	return seq
}

// paintRect sets the rectangle [x0,x1) x [y0,y1) of f to v.
func paintRect(f *Frame, x0, y0, x1, y1 int, v float64) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			f.Set(x, y, v)
		}
	}
}

// maskFromRows builds a mask from rows of 0/1 values.
func maskFromRows(rows [][]uint8) *Mask {
	m := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		copy(m.Pix[y*m.Width:], row)
	}
	return m
}
