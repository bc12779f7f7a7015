package motion

// Result is the full output of one spatial x temporal x threshold combination.
type Result struct {
	Spatial    SpatialConfig
	Temporal   TemporalConfig
	Strategy   Strategy
	Derivative *Derivative
	Threshold  Threshold
	Metrics    Metrics
}

// Derive smooths seq with spatial and evaluates temporal at index t.
// A nil *Derivative with a nil error means the temporal kernel does not fit
// at t.
func Derive(seq Sequence, t int, spatial SpatialConfig, temporal TemporalConfig) (*Derivative, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	if err := temporal.Validate(); err != nil {
		return nil, err
	}
	if err := spatial.Validate(); err != nil {
		return nil, err
	}
	if !Available(t, len(seq), temporal) {
		return nil, nil
	}

	// Smoothing is per frame, so only the temporal window needs it.
	m := temporal.Margin()
	window, err := Smooth(seq[t-m:t+m+1], spatial.Method, spatial.Sigma)
	if err != nil {
		return nil, err
	}
	d, err := Temporal(window, m, temporal)
	if err != nil || d == nil {
		return nil, err
	}
	d.Index = t
	d.Range = FrameRange{Start: t - m, End: t + m}
	return d, nil
}

// Evaluate thresholds a derivative with s and scores the mask.
func Evaluate(d *Derivative, s Strategy) (Threshold, Metrics) {
	thr := s.Apply(d.Frame)
	return thr, Score(d.Frame, thr.Mask)
}

// Analyze runs the whole pipeline for one combination. It returns a nil
// *Result and a nil error when the derivative is unavailable at t.
func Analyze(seq Sequence, t int, spatial SpatialConfig, temporal TemporalConfig, s Strategy) (*Result, error) {
	d, err := Derive(seq, t, spatial, temporal)
	if err != nil || d == nil {
		return nil, err
	}
	thr, m := Evaluate(d, s)
	return &Result{
		Spatial:    spatial,
		Temporal:   temporal,
		Strategy:   s,
		Derivative: d,
		Threshold:  thr,
		Metrics:    m,
	}, nil
}
