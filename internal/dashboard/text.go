package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText prints the report as plain text tables for terminals.
func (r *Report) WriteText(w io.Writer) error {
	excluded := "none"
	if len(r.Excluded) > 0 {
		excluded = strings.Join(r.Excluded, ", ")
	}

	fmt.Fprintf(w, "Range:     %s .. %s (hourly upper bound %s)\n", orOpen(r.MinDate), orOpen(r.MaxDate), r.HourlyBound)
	fmt.Fprintf(w, "Columns:   %s\n", strings.Join(r.Columns, ", "))
	fmt.Fprintf(w, "Excluded:  %s\n\n", excluded)

	fmt.Fprintf(w, "Mean lead time:        %s days\n", r.LeadTime.Mean)
	fmt.Fprintf(w, "Cumulative lead time:  %s days\n", r.LeadTime.Cumulative)
	fmt.Fprintf(w, "Mean daily lead time:  %s days\n", r.LeadTime.MeanDaily)
	fmt.Fprintf(w, "Days:                  %d\n\n", r.LeadTime.Days)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tARRIVALS\tINVENTORY\tAVG ARRIVALS\tAVG INVENTORY\tROLLING LEAD TIME")
	for _, p := range r.Daily {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
			p.Date, p.NumArrivals, p.NumInventory, p.AvgArrivals, p.AvgInventory, p.RollingLeadTime)
	}
	return tw.Flush()
}

func orOpen(date string) string {
	if date == "" {
		return "*"
	}
	return date
}
