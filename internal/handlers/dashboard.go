package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	"github.com/swa/agilemetrics/internal/charts"
	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/flow"
	"github.com/swa/agilemetrics/internal/logging"
	"github.com/swa/agilemetrics/internal/validation"
)

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 1.5rem; }
form { display: flex; gap: 1.5rem; align-items: flex-end; flex-wrap: wrap; }
label { display: flex; flex-direction: column; font-size: 0.9rem; }
.error { color: #b00020; }
.summary span { margin-right: 2rem; }
iframe { border: 0; width: 100%; height: 2100px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<form method="get" action="/dashboard">
  {{if .Token}}<input type="hidden" name="token" value="{{.Token}}">{{end}}
  <label>From
    <input type="date" name="min_date" value="{{.MinDate}}" min="{{.ExtentMin}}" max="{{.ExtentMax}}">
  </label>
  <label>To
    <input type="date" name="max_date" value="{{.MaxDate}}" min="{{.ExtentMin}}" max="{{.ExtentMax}}">
  </label>
  <label>Excluded columns
    <select name="exclude" multiple size="{{.SelectSize}}">
      {{range .Columns}}<option value="{{.Name}}"{{if .Excluded}} selected{{end}}>{{.Name}}</option>
      {{end}}
    </select>
  </label>
  <input type="hidden" name="exclude" value="">
  <label>Hourly upper bound
    <select name="hourly_bound">
      <option value="inclusive"{{if eq .HourlyBound "inclusive"}} selected{{end}}>inclusive</option>
      <option value="exclusive"{{if eq .HourlyBound "exclusive"}} selected{{end}}>exclusive</option>
    </select>
  </label>
  <button type="submit">Apply</button>
</form>
{{with .Error}}<p class="error">{{.}}</p>{{end}}
{{with .LeadTime}}<p class="summary">
  <span>Mean lead time: {{.Mean}} days</span>
  <span>Cumulative lead time: {{.Cumulative}} days</span>
  <span>Mean daily lead time: {{.MeanDaily}} days</span>
  <span>Days: {{.Days}}</span>
</p>{{end}}
{{if .ChartsURL}}<iframe title="charts" src="{{.ChartsURL}}"></iframe>{{end}}
</body>
</html>
`))

type columnOption struct {
	Name     string
	Excluded bool
}

type dashboardPage struct {
	Title       string
	Token       string
	MinDate     string
	MaxDate     string
	ExtentMin   string
	ExtentMax   string
	HourlyBound string
	Columns     []columnOption
	SelectSize  int
	LeadTime    *dashboard.LeadTime
	ChartsURL   string
	Error       string
}

/* DashboardHandlers serve the HTML dashboard and its chart page */
type DashboardHandlers struct {
	flow   *FlowHandlers
	charts charts.Options
	logger *logging.Logger
}

/* NewDashboardHandlers creates dashboard handlers on top of flow */
func NewDashboardHandlers(flow *FlowHandlers, opts charts.Options, logger *logging.Logger) *DashboardHandlers {
	return &DashboardHandlers{flow: flow, charts: opts, logger: logger}
}

// chartsQuery encodes sel so the chart page renders the same selection.
// The exclude key is always present so an empty set stays empty.
func chartsQuery(sel dashboard.Selection, token string) url.Values {
	q := url.Values{}
	q.Set("min_date", validation.FormatDate(sel.Range.Min))
	q.Set("max_date", validation.FormatDate(sel.Range.Max))
	q.Set("hourly_bound", sel.HourlyBound.String())
	excluded := sel.Excluded.Sorted()
	if len(excluded) == 0 {
		q["exclude"] = []string{""}
	} else {
		q["exclude"] = excluded
	}
	if token != "" {
		q.Set("token", token)
	}
	return q
}

func columnOptions(columns []string, excluded flow.ColumnSet) []columnOption {
	options := make([]columnOption, len(columns))
	for i, name := range columns {
		options[i] = columnOption{Name: name, Excluded: excluded.Has(name)}
	}
	return options
}

/* Page renders the selection form, the lead time summary and the chart frame */
func (h *DashboardHandlers) Page(w http.ResponseWriter, r *http.Request) {
	snap, err := h.flow.store.Current()
	if err != nil {
		WriteRequestError(w, r, err)
		return
	}

	token := r.URL.Query().Get("token")
	extent := snap.Extent()
	page := dashboardPage{
		Title:     h.title(),
		Token:     token,
		ExtentMin: validation.FormatDate(extent.Min),
		ExtentMax: validation.FormatDate(extent.Max),
	}

	status := http.StatusOK
	sel, err := SelectionFromQuery(r.URL.Query()).Resolve(snap, h.flow.defaults)
	if err != nil {
		if _, ok := validation.AsValidationError(err); !ok {
			WriteRequestError(w, r, err)
			return
		}
		// Show the form again with defaults and the problem
		status = http.StatusBadRequest
		page.Error = err.Error()
		sel = dashboard.DefaultSelection(snap, h.flow.defaults)
	} else {
		lt := dashboard.BuildLeadTime(snap, sel)
		page.LeadTime = &lt
		page.ChartsURL = "/dashboard/charts?" + chartsQuery(sel, token).Encode()
	}

	page.MinDate = validation.FormatDate(sel.Range.Min)
	page.MaxDate = validation.FormatDate(sel.Range.Max)
	page.HourlyBound = sel.HourlyBound.String()
	page.Columns = columnOptions(snap.Columns(), sel.Excluded)
	page.SelectSize = min(max(len(page.Columns), 2), 10)

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, page); err != nil {
		h.logger.Error("Failed to render dashboard", err, nil)
		WriteRequestError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

/* Charts renders the go-echarts page for the requested selection */
func (h *DashboardHandlers) Charts(w http.ResponseWriter, r *http.Request) {
	snap, sel, err := h.flow.resolve(r)
	if err != nil {
		WriteRequestError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.Render(&buf, dashboard.Build(snap, sel), h.charts); err != nil {
		h.logger.Error("Failed to render charts", err, nil)
		WriteRequestError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (h *DashboardHandlers) title() string {
	if h.charts.PageTitle != "" {
		return h.charts.PageTitle
	}
	return "Agile Metrics"
}
