// Package charts renders dashboard reports as an HTML page of ECharts
// charts.
package charts

import (
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/flow"
)

// missing is how ECharts marks a gap in a series
const missing = "-"

const (
	chartWidth  = "1100px"
	chartHeight = "380px"
	hourLayout  = "2006-01-02 15:04"
)

/* Options controls page rendering */
type Options struct {
	PageTitle string
	// AssetsHost overrides where the echarts script is loaded from
	AssetsHost string
}

// Render writes the full chart page for report to w.
func Render(w io.Writer, report *dashboard.Report, o Options) error {
	page := components.NewPage()
	page.PageTitle = o.PageTitle
	if page.PageTitle == "" {
		page.PageTitle = "Agile Metrics"
	}
	if o.AssetsHost != "" {
		page.AssetsHost = o.AssetsHost
	}
	page.SetLayout(components.PageFlexLayout)

	page.AddCharts(
		WIPChart(report),
		CumulativeFlowChart(report),
		ArrivalsChart(report),
		InventoryChart(report),
		LeadTimeChart(report),
	)
	return page.Render(w)
}

func baseOptions(title, subtitle, yName string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	}
}

func hourLabels(ts []time.Time) []string {
	labels := make([]string, len(ts))
	for i, t := range ts {
		labels[i] = t.Format(hourLayout)
	}
	return labels
}

// stackedArea draws one stacked series per column from bucket counts.
func stackedArea(title, subtitle string, buckets []flow.BucketCount, columns []string) *charts.Line {
	ts := flow.Timestamps(buckets)
	series := flow.Pivot(buckets, columns, ts)

	line := charts.NewLine()
	line.SetGlobalOptions(baseOptions(title, subtitle, "items")...)
	line.SetXAxis(hourLabels(ts))
	for _, column := range columns {
		counts := series[column]
		data := make([]opts.LineData, len(counts))
		for i, c := range counts {
			data[i] = opts.LineData{Value: c}
		}
		line.AddSeries(column, data)
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Stack: "total"}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.6}),
	)
	return line
}

// presentColumns keeps the columns of report that appear in buckets.
func presentColumns(columns []string, buckets []flow.BucketCount) []string {
	seen := make(map[string]bool)
	for _, b := range buckets {
		seen[b.ColumnName] = true
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// WIPChart is the work in progress per column, excluded columns removed.
func WIPChart(report *dashboard.Report) *charts.Line {
	return stackedArea("Work in progress", "items per column by hour",
		report.WIP, presentColumns(report.Columns, report.WIP))
}

// CumulativeFlowChart stacks every column, including excluded ones.
func CumulativeFlowChart(report *dashboard.Report) *charts.Line {
	return stackedArea("Cumulative flow", "all columns by hour",
		report.CumulativeFlow, presentColumns(report.Columns, report.CumulativeFlow))
}

func dailyLabels(report *dashboard.Report) []string {
	labels := make([]string, len(report.Daily))
	for i, p := range report.Daily {
		labels[i] = p.Date
	}
	return labels
}

func metricData(values []dashboard.Metric) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if v.Valid() {
			data[i] = opts.LineData{Value: float64(v)}
		} else {
			data[i] = opts.LineData{Value: missing}
		}
	}
	return data
}

// ArrivalsChart shows daily arrivals against their trailing average.
func ArrivalsChart(report *dashboard.Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions("Arrivals", "items started per day", "items")...)
	bar.SetXAxis(dailyLabels(report))

	counts := make([]opts.BarData, len(report.Daily))
	averages := make([]dashboard.Metric, len(report.Daily))
	for i, p := range report.Daily {
		counts[i] = opts.BarData{Value: p.NumArrivals}
		averages[i] = p.AvgArrivals
	}
	bar.AddSeries("arrivals", counts)

	trend := charts.NewLine()
	trend.AddSeries("two week average", metricData(averages))
	bar.Overlap(trend)
	return bar
}

// InventoryChart shows daily inventory against its trailing average.
func InventoryChart(report *dashboard.Report) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(baseOptions("Inventory", "items in progress per day", "items")...)
	line.SetXAxis(dailyLabels(report))

	counts := make([]opts.LineData, len(report.Daily))
	averages := make([]dashboard.Metric, len(report.Daily))
	for i, p := range report.Daily {
		counts[i] = opts.LineData{Value: p.NumInventory}
		averages[i] = p.AvgInventory
	}
	line.AddSeries("inventory", counts,
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.3}))
	line.AddSeries("two week average", metricData(averages))
	return line
}

// LeadTimeChart plots the rolling lead time with the mean and cumulative
// lead time of the selection as reference lines.
func LeadTimeChart(report *dashboard.Report) *charts.Line {
	line := charts.NewLine()
	subtitle := "mean " + report.LeadTime.Mean.String() + " days, cumulative " + report.LeadTime.Cumulative.String() + " days"
	line.SetGlobalOptions(baseOptions("Lead time", subtitle, "days")...)
	line.SetXAxis(dailyLabels(report))

	rolling := make([]dashboard.Metric, len(report.Daily))
	for i, p := range report.Daily {
		rolling[i] = p.RollingLeadTime
	}

	line.AddSeries("rolling lead time", metricData(rolling), leadTimeMarkLines(report.LeadTime)...)
	return line
}

// leadTimeMarkLines returns one horizontal line per computable statistic
func leadTimeMarkLines(lt dashboard.LeadTime) []charts.SeriesOpts {
	var items []opts.MarkLineNameYAxisItem
	if lt.Mean.Valid() {
		items = append(items, opts.MarkLineNameYAxisItem{Name: "mean", YAxis: float64(lt.Mean)})
	}
	if lt.Cumulative.Valid() {
		items = append(items, opts.MarkLineNameYAxisItem{Name: "cumulative", YAxis: float64(lt.Cumulative)})
	}
	if len(items) == 0 {
		return nil
	}
	return []charts.SeriesOpts{charts.WithMarkLineNameYAxisItemOpts(items...)}
}
