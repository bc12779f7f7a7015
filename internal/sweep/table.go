package sweep

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// StrategyName is the table display name for a strategy kind.
func StrategyName(kind string) string {
	switch kind {
	case "fixed":
		return "Fixed"
	case "percentile":
		return "Percentile"
	case "noise_model":
		return "Noise model"
	}
	return kind
}

// WriteTable writes a report as an aligned text table headed by its title.
func WriteTable(w io.Writer, rep *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, rep.Title)
	switch rep.Experiment {
	case TemporalOnly:
		fmt.Fprintln(tw, "Filter\tPctl\tThr\tMotion%\tSNR\tLCC\t")
		for _, r := range rep.Records {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.TemporalLabel, r.Param, numbers(r))
		}
	case Combined:
		fmt.Fprintln(tw, "Spatial\tTemporal\tPctl\tThr\tMotion%\tSNR\tLCC\t")
		for _, r := range rep.Records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.SpatialLabel, r.TemporalLabel, r.Param, numbers(r))
		}
	default:
		fmt.Fprintln(tw, "Strategy\tParam\tThr\tMotion%\tSNR\tLCC\t")
		for _, r := range rep.Records {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", StrategyName(r.Strategy), r.Param, numbers(r))
		}
	}
	return tw.Flush()
}

func numbers(r Record) string {
	return fmt.Sprintf("%.2f\t%.2f%%\t%.2f\t%.3f\t",
		r.Threshold, r.Metrics.MotionPercentage, r.Metrics.SNR, r.Metrics.LargestComponentRatio)
}
