package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"example.com/tg-planner/backend/internal/analytics"
	"example.com/tg-planner/backend/internal/auth"
	"example.com/tg-planner/backend/internal/cache"
	"example.com/tg-planner/backend/internal/models"
	"example.com/tg-planner/backend/internal/repository"
)

const (
	defaultCategoriesTop = 8
	defaultPieTop        = 6
	maxTop               = 50
	maxTrendDays         = 366 * 5
	defaultBuildTimeout  = 10 * time.Second

	pieSize     = 200.0
	otherColor  = "#B0B0B0"
	cacheHeader = "X-Cache"
	kindAll     = "all"
)

var piePalette = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF",
	"#FF9F40", "#8AC926", "#1982C4", "#6A4C93", "#F15BB5",
}

var errInvalidQuery = errors.New("invalid query")

type StatsHandler struct {
	Storage  repository.KVStore
	Cache    *cache.Responses
	Location *time.Location
	Now      func() time.Time

	// одинаковые промахи кэша собираются один раз
	flights singleflight.Group
	// BuildTimeout ограничивает сборку ответа, которая не зависит от отмены запроса.
	BuildTimeout time.Duration
}

// NewStatsHandler создает обработчик аналитики поверх документов пользователя.
func NewStatsHandler(storage repository.KVStore, responses *cache.Responses, loc *time.Location) *StatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsHandler{
		Storage:  storage,
		Cache:    responses,
		Location:     loc,
		Now:          time.Now,
		BuildTimeout: defaultBuildTimeout,
	}
}

type RangeResponse struct {
	Period      string `json:"period"`
	Start       string `json:"start"`
	End         string `json:"end"`
	StartMillis int64  `json:"start_ms"`
	EndMillis   int64  `json:"end_ms"`
	Timezone    string `json:"timezone"`
}

type SummaryResponse struct {
	Range   RangeResponse     `json:"range"`
	Summary analytics.Summary `json:"summary"`
}

type CategoriesResponse struct {
	Range       RangeResponse     `json:"range"`
	Type        string            `json:"type"`
	Total       decimal.Decimal   `json:"total"`
	Categories  []analytics.Share `json:"categories"`
	OthersCount int               `json:"others_count"`
}

type PieSlice struct {
	analytics.Slice
	Color string `json:"color"`
	Path  string `json:"path"`
}

type PieResponse struct {
	Range  RangeResponse   `json:"range"`
	Type   string          `json:"type"`
	Total  decimal.Decimal `json:"total"`
	Size   float64         `json:"size"`
	Slices []PieSlice      `json:"slices"`
}

type TrendsResponse struct {
	Range RangeResponse        `json:"range"`
	Type  string               `json:"type"`
	Days  []analytics.DayTotal `json:"days"`
}

type QuadrantStat struct {
	Quadrant   int     `json:"quadrant"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type MatrixInsightsResponse struct {
	Total        int                 `json:"total"`
	Unclassified int                 `json:"unclassified"`
	Quadrants    []QuadrantStat      `json:"quadrants"`
	Insights     []analytics.Insight `json:"insights"`
}

type CategoryCompletion struct {
	Category string `json:"category"`
	analytics.Completion
}

type TaskStatsResponse struct {
	Range      RangeResponse        `json:"range"`
	Completion analytics.Completion `json:"completion"`
	ByCategory []CategoryCompletion `json:"by_category"`
}

// Summary возвращает доходы, расходы и баланс за период.
func (h *StatsHandler) Summary(c echo.Context) error {
	return h.serve(c, func(ctx context.Context, userID int64, period rangeParams) (any, error) {
		entries, err := h.entries(ctx, userID, period.Range)
		if err != nil {
			return nil, err
		}
		return SummaryResponse{Range: period.response(), Summary: analytics.Summarize(entries)}, nil
	})
}

// Categories возвращает доли категорий с хвостом, свернутым в "Other".
func (h *StatsHandler) Categories(c echo.Context) error {
	kind, err := parseKind(c.QueryParam("type"), analytics.KindExpense)
	if err != nil {
		return badRequest(c, "invalid type")
	}
	top, err := parseTop(c.QueryParam("top"), defaultCategoriesTop)
	if err != nil {
		return badRequest(c, "invalid top")
	}

	return h.serve(c, func(ctx context.Context, userID int64, period rangeParams) (any, error) {
		entries, err := h.entries(ctx, userID, period.Range)
		if err != nil {
			return nil, err
		}

		collapsed := analytics.CollapseTopN(analytics.SortDescending(analytics.GroupByCategory(entries, kind)), top)
		shares := analytics.Shares(collapsed.Items())
		rounded := analytics.RoundShares(sharePercentages(shares))
		for i := range shares {
			shares[i].Percentage = rounded[i]
		}

		return CategoriesResponse{
			Range:       period.response(),
			Type:        kindName(kind),
			Total:       collapsed.Total(),
			Categories:  shares,
			OthersCount: collapsed.Rest,
		}, nil
	})
}

// Pie возвращает сектора круговой диаграммы с цветами и SVG-путями.
func (h *StatsHandler) Pie(c echo.Context) error {
	kind, err := parseKind(c.QueryParam("type"), analytics.KindExpense)
	if err != nil {
		return badRequest(c, "invalid type")
	}
	top, err := parseTop(c.QueryParam("top"), defaultPieTop)
	if err != nil {
		return badRequest(c, "invalid top")
	}

	return h.serve(c, func(ctx context.Context, userID int64, period rangeParams) (any, error) {
		entries, err := h.entries(ctx, userID, period.Range)
		if err != nil {
			return nil, err
		}
		categories, err := loadDocument[models.Category](ctx, h.Storage, userID, models.KeyCategories)
		if err != nil {
			return nil, err
		}

		collapsed := analytics.CollapseTopN(analytics.SortDescending(analytics.GroupByCategory(entries, kind)), top)
		colors := categoryColors(categories)
		center := pieSize / 2

		pie := analytics.PieSlices(collapsed.Items())
		percentages := make([]float64, len(pie))
		for i, slice := range pie {
			percentages[i] = slice.Percentage
		}
		rounded := analytics.RoundShares(percentages)

		out := make([]PieSlice, 0, len(pie))
		for i, slice := range pie {
			slice.Percentage = rounded[i]
			out = append(out, PieSlice{
				Slice: slice,
				Color: sliceColor(slice.Category, i, colors),
				Path:  slice.Path(center, center, center),
			})
		}

		return PieResponse{
			Range:  period.response(),
			Type:   kindName(kind),
			Total:  collapsed.Total(),
			Size:   pieSize,
			Slices: out,
		}, nil
	})
}

// Trends возвращает суммы по дням периода.
func (h *StatsHandler) Trends(c echo.Context) error {
	kind, err := parseKind(c.QueryParam("type"), "")
	if err != nil {
		return badRequest(c, "invalid type")
	}

	return h.serve(c, func(ctx context.Context, userID int64, period rangeParams) (any, error) {
		if period.Range.Days() > maxTrendDays {
			return nil, errInvalidQuery
		}

		entries, err := h.entries(ctx, userID, period.Range)
		if err != nil {
			return nil, err
		}
		if kind != "" {
			entries = slices.DeleteFunc(entries, func(e analytics.Entry) bool { return e.Kind != kind })
		}

		return TrendsResponse{
			Range: period.response(),
			Type:  kindName(kind),
			Days:  analytics.DailyTotals(entries, period.Range),
		}, nil
	})
}

// MatrixInsights возвращает распределение задач по квадрантам и подсказки.
// Без параметра period учитываются задачи за все время.
func (h *StatsHandler) MatrixInsights(c echo.Context) error {
	includeCompleted, err := parseBool(c.QueryParam("include_completed"))
	if err != nil {
		return badRequest(c, "invalid include_completed")
	}
	scoped := c.QueryParam("period") != ""

	return h.serve(c, func(ctx context.Context, userID int64, period rangeParams) (any, error) {
		tasks, err := loadDocument[models.MatrixTask](ctx, h.Storage, userID, models.KeyMatrixTasks)
		if err != nil {
			return nil, err
		}
		if scoped {
			tasks = analytics.FilterByRange(tasks, period.Range)
		}

		var dist analytics.Distribution
		unclassified := 0
		for _, task := range tasks {
			if task.Completed && !includeCompleted {
				continue
			}
			q, ok := task.QuadrantOf()
			if !ok {
				unclassified++
				continue
			}
			dist.Add(q)
		}

		order := []analytics.Quadrant{
			analytics.QuadrantDoFirst,
			analytics.QuadrantSchedule,
			analytics.QuadrantDelegate,
			analytics.QuadrantEliminate,
		}
		percentages := make([]float64, len(order))
		for i, q := range order {
			percentages[i] = dist.Percentage(q)
		}
		rounded := analytics.RoundShares(percentages)

		quadrants := make([]QuadrantStat, 0, len(order))
		for i, q := range order {
			quadrants = append(quadrants, QuadrantStat{
				Quadrant:   int(q),
				Name:       q.String(),
				Count:      dist.Count(q),
				Percentage: rounded[i],
			})
		}

		return MatrixInsightsResponse{
			Total:        dist.Total(),
			Unclassified: unclassified,
			Quadrants:    quadrants,
			Insights:     analytics.DeriveInsights(dist),
		}, nil
	})
}

// TaskStats возвращает долю выполненных задач за период.
func (h *StatsHandler) TaskStats(c echo.Context) error {
	return h.serve(c, func(ctx context.Context, userID int64, period rangeParams) (any, error) {
		tasks, err := loadDocument[models.Task](ctx, h.Storage, userID, models.KeyTasks)
		if err != nil {
			return nil, err
		}
		tasks = analytics.FilterByRange(tasks, period.Range)
		done := func(t models.Task) bool { return t.Completed }

		grouped := make(map[string][]models.Task)
		order := make([]string, 0)
		for _, task := range tasks {
			category := strings.TrimSpace(task.Category)
			if category == "" {
				category = analytics.UncategorizedCategory
			}
			if _, ok := grouped[category]; !ok {
				order = append(order, category)
			}
			grouped[category] = append(grouped[category], task)
		}

		byCategory := make([]CategoryCompletion, 0, len(order))
		for _, category := range order {
			completion := analytics.CompletionOf(grouped[category], done)
			completion.Percentage = analytics.RoundPercent(completion.Percentage)
			byCategory = append(byCategory, CategoryCompletion{Category: category, Completion: completion})
		}
		slices.SortStableFunc(byCategory, func(a, b CategoryCompletion) int { return b.Total - a.Total })

		completion := analytics.CompletionOf(tasks, done)
		completion.Percentage = analytics.RoundPercent(completion.Percentage)

		return TaskStatsResponse{
			Range:      period.response(),
			Completion: completion,
			ByCategory: byCategory,
		}, nil
	})
}

type rangeParams struct {
	Period analytics.Period
	Range  analytics.DateRange
	Loc    *time.Location
}

func (p rangeParams) response() RangeResponse {
	return RangeResponse{
		Period:      string(p.Period),
		Start:       p.Range.Start.Format(analytics.DateLayout),
		End:         p.Range.End.Format(analytics.DateLayout),
		StartMillis: p.Range.StartMillis(),
		EndMillis:   p.Range.EndMillis(),
		Timezone:    p.Loc.String(),
	}
}

// resolveRange разбирает period, start_date, end_date и tz.
func (h *StatsHandler) resolveRange(c echo.Context) (rangeParams, error) {
	loc := h.Location
	if tz := strings.TrimSpace(c.QueryParam("tz")); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return rangeParams{}, err
		}
		loc = parsed
	}

	period := analytics.ParsePeriod(c.QueryParam("period"))
	now := h.now().In(loc)
	return rangeParams{
		Period: period,
		Range:  analytics.Resolve(period, c.QueryParam("start_date"), c.QueryParam("end_date"), now),
		Loc:    loc,
	}, nil
}

// serve разрешает период и отдает ответ build, запоминая его в кэше.
// Ключ кэша включает границы периода, поэтому смена дня дает новый ключ.
// build выполняется один раз на ключ для всех ждущих запросов, поэтому его
// контекст не отменяется вместе с запросом, который начал сборку.
func (h *StatsHandler) serve(c echo.Context, build func(ctx context.Context, userID int64, period rangeParams) (any, error)) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	period, err := h.resolveRange(c)
	if err != nil {
		return badRequest(c, "invalid tz")
	}

	key := cacheKey(c.Path(), c.QueryParams(), period)
	var generation uint64
	if h.Cache != nil {
		key, generation = h.Cache.Key(userID, key)
		if cached, ok := h.Cache.Get(key); ok {
			c.Response().Header().Set(cacheHeader, "HIT")
			return c.JSON(http.StatusOK, cached)
		}
	} else {
		key = strconv.FormatInt(userID, 10) + ":" + key
	}

	response, err, _ := h.flights.Do(key, func() (any, error) {
		ctx := context.WithoutCancel(c.Request().Context())
		if h.BuildTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.BuildTimeout)
			defer cancel()
		}
		return build(ctx, userID, period)
	})
	if err != nil {
		if errors.Is(err, errInvalidQuery) {
			return badRequest(c, "range is too long")
		}
		return serverError(c)
	}

	if h.Cache != nil {
		h.Cache.Set(userID, generation, key, response)
		c.Response().Header().Set(cacheHeader, "MISS")
	}
	return c.JSON(http.StatusOK, response)
}

func (h *StatsHandler) entries(ctx context.Context, userID int64, r analytics.DateRange) ([]analytics.Entry, error) {
	transactions, err := loadDocument[models.Transaction](ctx, h.Storage, userID, models.KeyTransactions)
	if err != nil {
		return nil, err
	}
	return analytics.FilterByRange(models.Entries(transactions, r.Start.Location()), r), nil
}

func (h *StatsHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func sharePercentages(shares []analytics.Share) []float64 {
	out := make([]float64, len(shares))
	for i, share := range shares {
		out[i] = share.Percentage
	}
	return out
}

func cacheKey(path string, query url.Values, period rangeParams) string {
	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	b.WriteString(query.Encode())
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(period.Range.StartMillis(), 10))
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(period.Range.EndMillis(), 10))
	return b.String()
}

func parseKind(raw, fallback string) (string, error) {
	switch kind := strings.ToLower(strings.TrimSpace(raw)); kind {
	case "":
		return fallback, nil
	case kindAll:
		return "", nil
	case analytics.KindIncome, analytics.KindExpense:
		return kind, nil
	default:
		return "", errInvalidQuery
	}
}

func kindName(kind string) string {
	if kind == "" {
		return kindAll
	}
	return kind
}

func parseTop(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}

	top, err := strconv.Atoi(raw)
	if err != nil || top < 0 {
		return 0, errInvalidQuery
	}
	if top > maxTop {
		top = maxTop
	}
	return top, nil
}

func parseBool(raw string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func categoryColors(categories []models.Category) map[string]string {
	colors := make(map[string]string, len(categories))
	for _, category := range categories {
		name := strings.ToLower(strings.TrimSpace(category.Name))
		if name == "" || !isHexColor(category.Color) {
			continue
		}
		if _, ok := colors[name]; !ok {
			colors[name] = category.Color
		}
	}
	return colors
}

func sliceColor(category string, index int, colors map[string]string) string {
	if category == analytics.OtherCategory {
		return otherColor
	}
	if color, ok := colors[strings.ToLower(category)]; ok {
		return color
	}
	return piePalette[index%len(piePalette)]
}

// isHexColor принимает цвета вида #RGB и #RRGGBB.
func isHexColor(value string) bool {
	if (len(value) != 7 && len(value) != 4) || value[0] != '#' {
		return false
	}

	for i := 1; i < len(value); i++ {
		c := value[i]
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}
