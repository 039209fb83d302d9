// Package api exposes the dashboard over HTTP and Telegram
package api

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/entities"
	"github.com/abelzeko/water-monitor/internal/gauge"
	"github.com/abelzeko/water-monitor/internal/history"
	"github.com/abelzeko/water-monitor/internal/report"
	"github.com/abelzeko/water-monitor/internal/usecases"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// HTTPServer serves the HTML dashboard and the JSON API
type HTTPServer struct {
	dashboard *usecases.DashboardUseCase
	logger    *zap.Logger
	tmpl      *template.Template
}

// NewHTTPServer creates the HTTP surface
func NewHTTPServer(dashboard *usecases.DashboardUseCase, logger *zap.Logger) (*HTTPServer, error) {
	tmpl, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"levelClass": func(level entities.SeverityLevel) string { return gauge.StyleFor(level).TextClass },
		"badgeClass": func(level entities.SeverityLevel) string { return gauge.StyleFor(level).BadgeClass },
	}).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}
	return &HTTPServer{dashboard: dashboard, logger: logger, tmpl: tmpl}, nil
}

// Router builds a gin engine with every route registered
func (s *HTTPServer) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes mounts the dashboard routes
func (s *HTTPServer) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.GetDashboard)

	v1 := router.Group("/api/v1")
	v1.GET("/health", s.GetHealth)
	v1.GET("/latest", s.GetLatest)
	v1.GET("/readings", s.GetReadings)
	v1.GET("/readings/export", s.ExportReadings)
	v1.POST("/reload", s.PostReload)
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// historyFromQuery applies search, status, date and page query parameters to a fresh history state
func (s *HTTPServer) historyFromQuery(c *gin.Context) (history.State, error) {
	state := s.dashboard.NewHistory()

	if search := c.Query("search"); search != "" {
		state = state.WithSearch(search)
	}

	status, err := history.ParseStatusFilter(c.Query("status"))
	if err != nil {
		return state, err
	}
	state = state.WithStatus(status)

	day, err := history.ParseDay(c.Query("date"))
	if err != nil {
		return state, err
	}
	state = state.WithDate(day)

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return state, fmt.Errorf("invalid page %q", raw)
		}
		state = state.WithPage(page)
	}
	return state, nil
}

type latestResponse struct {
	Reading entities.SensorReading            `json:"reading"`
	Levels  map[string]entities.SeverityLevel `json:"levels"`
	Overall entities.OverallStatus            `json:"overall"`
	Gauges  []gaugeView                       `json:"gauges"`
}

type gaugeView struct {
	Label     string                 `json:"label"`
	Unit      string                 `json:"unit"`
	Value     *float64               `json:"value"`
	Max       float64                `json:"max"`
	Status    entities.SeverityLevel `json:"status"`
	Display   string                 `json:"display"`
	Percent   float64                `json:"percent"`
	DashArray string                 `json:"dashArray"`
	Style     gauge.Style            `json:"-"`
}

func gaugeViews(gauges []gauge.Gauge) []gaugeView {
	views := make([]gaugeView, 0, len(gauges))
	for _, g := range gauges {
		views = append(views, gaugeView{
			Label:     g.Label,
			Unit:      g.Unit,
			Value:     entities.Finite(g.Value),
			Max:       g.Max,
			Status:    g.Status,
			Display:   g.DisplayValue(),
			Percent:   g.Percent(),
			DashArray: g.DashArray(),
			Style:     g.Style(),
		})
	}
	return views
}

// GetLatest returns the latest reading with its classification
func (s *HTTPServer) GetLatest(c *gin.Context) {
	view, ok := s.dashboard.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, CreateErrorResponse(CodeNotFound, "no sensor data available"))
		return
	}
	c.JSON(http.StatusOK, CreateSuccessResponse(latestResponse{
		Reading: view.Reading,
		Levels:  view.Levels,
		Overall: view.Overall,
		Gauges:  gaugeViews(view.Gauges),
	}))
}

type readingsResponse struct {
	Columns    []history.Column `json:"columns"`
	Rows       []history.Row    `json:"rows"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	Matching   int              `json:"matching"`
	Total      int              `json:"total"`
	Summary    string           `json:"summary"`
	Empty      string           `json:"emptyMessage,omitempty"`
}

// GetReadings returns one page of the filtered history table
func (s *HTTPServer) GetReadings(c *gin.Context) {
	state, err := s.historyFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, CreateErrorResponse(CodeBadRequest, err.Error()))
		return
	}

	resp := readingsResponse{
		Columns:    history.Columns,
		Rows:       state.Rows(),
		Page:       state.Page(),
		TotalPages: state.TotalPages(),
		Matching:   len(state.Filtered()),
		Total:      len(state.Readings()),
		Summary:    state.Summary(),
	}
	if len(resp.Rows) == 0 {
		resp.Empty = history.EmptyMessage
	}
	c.JSON(http.StatusOK, CreateSuccessResponse(resp))
}

// ExportReadings returns every reading matching the filters as an xlsx workbook
func (s *HTTPServer) ExportReadings(c *gin.Context) {
	state, err := s.historyFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, CreateErrorResponse(CodeBadRequest, err.Error()))
		return
	}

	data, err := report.WriteReadingsWorkbook(history.RenderRows(state.Filtered(), state))
	if err != nil {
		s.logger.Error("failed to build export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, CreateErrorResponse(CodeInternalError, "failed to build export"))
		return
	}

	filename := fmt.Sprintf("sensor-history-%s.xlsx", time.Now().In(s.dashboard.Location()).Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, report.ContentType, data)
}

type healthResponse struct {
	Status    string     `json:"status"`
	HasData   bool       `json:"hasData"`
	Readings  int        `json:"readings"`
	LoadedAt  *time.Time `json:"loadedAt,omitempty"`
	Loading   bool       `json:"loading"`
	LastError string     `json:"lastError,omitempty"`
}

// GetHealth reports snapshot freshness
func (s *HTTPServer) GetHealth(c *gin.Context) {
	snap := s.dashboard.Snapshot()
	resp := healthResponse{
		Status:    "ok",
		HasData:   snap.HasData(),
		Readings:  len(snap.Readings),
		Loading:   snap.Loading,
		LastError: snap.LastError,
	}
	if !snap.LoadedAt.IsZero() {
		loaded := snap.LoadedAt
		resp.LoadedAt = &loaded
	}
	if snap.Stale() {
		resp.Status = "stale"
	}
	c.JSON(http.StatusOK, CreateSuccessResponse(resp))
}

// PostReload triggers a manual reload
func (s *HTTPServer) PostReload(c *gin.Context) {
	err := s.dashboard.Reload(c.Request.Context())
	switch {
	case errors.Is(err, usecases.ErrReloadInProgress):
		c.JSON(http.StatusConflict, CreateErrorResponse(CodeReloadInProgress, err.Error()))
	case err != nil:
		c.JSON(http.StatusBadGateway, CreateErrorResponse(CodeUpstreamFailure, err.Error()))
	default:
		s.GetHealth(c)
	}
}

type statusOption struct {
	Value    string
	Label    string
	Selected bool
}

type dashboardPage struct {
	Loading      bool
	HasData      bool
	Stale        bool
	LastError    string
	LoadedAt     string
	Gauges       []gaugeView
	Overall      entities.OverallStatus
	Search       string
	Date         string
	Statuses     []statusOption
	Columns      []history.Column
	Rows         []history.Row
	EmptyMessage string
	Summary      string
	Page         int
	TotalPages   int
	PrevURL      string
	NextURL      string
	ExportURL    string
	HasFilters   bool
	FilterError  string
}

// GetDashboard renders the HTML dashboard
func (s *HTTPServer) GetDashboard(c *gin.Context) {
	snap := s.dashboard.Snapshot()
	page := dashboardPage{
		Loading:   snap.Loading && !snap.HasData(),
		HasData:   snap.HasData(),
		Stale:     snap.Stale(),
		LastError: snap.LastError,
		Columns:   history.Columns,
	}
	if !snap.LoadedAt.IsZero() {
		page.LoadedAt = snap.LoadedAt.In(s.dashboard.Location()).Format("2/1/2006 15.04.05")
	}
	if view, ok := s.dashboard.Latest(); ok {
		page.Gauges = gaugeViews(view.Gauges)
		page.Overall = view.Overall
	}

	state, err := s.historyFromQuery(c)
	if err != nil {
		page.FilterError = err.Error()
	}
	page.Search = state.SearchText()
	if !state.Date().IsZero() {
		page.Date = state.Date().String()
	}
	page.Statuses = statusOptions(state.Status())
	page.Rows = state.Rows()
	page.Summary = state.Summary()
	page.Page = state.Page()
	page.TotalPages = state.TotalPages()
	page.HasFilters = state.HasFilters()
	if len(page.Rows) == 0 {
		page.EmptyMessage = history.EmptyMessage
	}
	page.ExportURL = "/api/v1/readings/export"
	if q := filterQuery(state); len(q) > 0 {
		page.ExportURL += "?" + q.Encode()
	}
	if page.Page > 1 {
		page.PrevURL = pageURL(state, page.Page-1)
	}
	if page.Page < page.TotalPages {
		page.NextURL = pageURL(state, page.Page+1)
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(c.Writer, page); err != nil {
		s.logger.Error("failed to render dashboard", zap.Error(err))
	}
}

func statusOptions(current history.StatusFilter) []statusOption {
	options := []statusOption{{Value: string(history.StatusAll), Label: "Semua Status", Selected: current == history.StatusAll}}
	for _, level := range entities.SeverityLevels {
		f := history.StatusFor(level)
		options = append(options, statusOption{Value: string(f), Label: level.Label(), Selected: current == f})
	}
	return options
}

func pageURL(state history.State, page int) string {
	q := filterQuery(state)
	q.Set("page", strconv.Itoa(page))
	return "/?" + q.Encode()
}

func filterQuery(state history.State) url.Values {
	q := url.Values{}
	if state.SearchText() != "" {
		q.Set("search", state.SearchText())
	}
	if state.Status() != history.StatusAll {
		q.Set("status", string(state.Status()))
	}
	if !state.Date().IsZero() {
		q.Set("date", state.Date().String())
	}
	return q
}
