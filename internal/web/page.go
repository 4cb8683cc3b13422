package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"trainercal/internal/clock"
	appLog "trainercal/internal/log"
	"trainercal/internal/model"
	"trainercal/internal/view"
)

//go:embed templates/calendar.html
var templateFS embed.FS

// mdRenderer turns session notes into HTML. Raw HTML in notes is escaped
// because WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// blockStyle places a block inside its column, splitting the width between
// overlapping lanes.
func blockStyle(b view.Block) template.CSS {
	lanes := max(b.Lanes, 1)
	width := 100.0 / float64(lanes)
	left := width * float64(b.Lane)
	return template.CSS("top:" + strconv.Itoa(b.Top) + "px;height:" + strconv.Itoa(b.Height) + "px;" +
		"left:" + strconv.FormatFloat(left, 'f', 3, 64) + "%;width:" + strconv.FormatFloat(width, 'f', 3, 64) + "%")
}

type pageRenderer struct {
	tpl *template.Template
}

func newPageRenderer() *pageRenderer {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"blockStyle": blockStyle,
	}
	tpl := template.Must(template.New("calendar.html").Funcs(funcMap).ParseFS(templateFS, "templates/calendar.html"))
	return &pageRenderer{tpl: tpl}
}

// pageData feeds templates/calendar.html.
type pageData struct {
	Grid     view.Grid
	Clients  string
	PrevURL  string
	NextURL  string
	TodayURL string
	WeekURL  string
	DayURL   string
	Error    string
}

func pageURL(d clock.Date, mode model.ViewMode, clients []int64) string {
	q := url.Values{}
	if !d.IsZero() {
		q.Set("date", d.String())
	}
	q.Set("view", string(mode))
	if len(clients) > 0 {
		q.Set("clients", joinIDs(clients))
	}
	return "/calendar?" + q.Encode()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// handleCalendarPage renders the grid server-side. The root element carries
// data-ready="true" once rendered so the capture job knows when to shoot.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	state, err := s.viewState(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := pageData{Clients: joinIDs(state.SelectedClientIDs)}
	snap, err := s.svc.Load(r.Context(), state)
	if err != nil {
		// Still render an empty grid so the page and its navigation work.
		appLog.Error("calendar page: load failed", err, "date", state.CurrentDate)
		data.Error = "Could not load sessions from the backend."
		snap.Grid = s.svc.Empty(state)
	}
	g := snap.Grid
	data.Grid = g
	data.PrevURL = pageURL(g.Previous, g.Mode, state.SelectedClientIDs)
	data.NextURL = pageURL(g.Next, g.Mode, state.SelectedClientIDs)
	data.TodayURL = pageURL(clock.Date{}, g.Mode, state.SelectedClientIDs)
	data.WeekURL = pageURL(g.Date, model.ViewWeek, state.SelectedClientIDs)
	data.DayURL = pageURL(g.Date, model.ViewDay, state.SelectedClientIDs)

	var buf bytes.Buffer
	if err := s.page.tpl.Execute(&buf, data); err != nil {
		appLog.Error("calendar page: template failed", err)
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
