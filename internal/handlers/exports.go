package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/tg-planner/backend/internal/analytics"
	"example.com/tg-planner/backend/internal/auth"
	"example.com/tg-planner/backend/internal/models"
)

const timeLayout = time.RFC3339

type TransactionsExport struct {
	Range        RangeResponse        `json:"range"`
	Transactions []models.Transaction `json:"transactions"`
}

// ExportJSON выгружает транзакции периода в JSON-файл.
func (h *StatsHandler) ExportJSON(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	period, err := h.resolveRange(c)
	if err != nil {
		return badRequest(c, "invalid tz")
	}

	transactions, err := h.periodTransactions(c, userID, period.Range)
	if err != nil {
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+exportFilename(period, "json")+"\"")
	return c.JSON(http.StatusOK, TransactionsExport{Range: period.response(), Transactions: transactions})
}

// ExportCSV выгружает транзакции периода в CSV-файл.
func (h *StatsHandler) ExportCSV(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	period, err := h.resolveRange(c)
	if err != nil {
		return badRequest(c, "invalid tz")
	}

	transactions, err := h.periodTransactions(c, userID, period.Range)
	if err != nil {
		return serverError(c)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeTransactionsCSV(writer, transactions, period.Loc); err != nil {
		return serverError(c)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+exportFilename(period, "csv")+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// periodTransactions возвращает транзакции периода по возрастанию даты.
func (h *StatsHandler) periodTransactions(c echo.Context, userID int64, r analytics.DateRange) ([]models.Transaction, error) {
	transactions, err := loadDocument[models.Transaction](c.Request().Context(), h.Storage, userID, models.KeyTransactions)
	if err != nil {
		return nil, err
	}

	loc := r.Start.Location()
	filtered := analytics.FilterByRange(transactions, r)
	slices.SortStableFunc(filtered, func(a, b models.Transaction) int {
		return a.Date.At(loc).Compare(b.Date.At(loc))
	})
	return filtered, nil
}

func writeTransactionsCSV(writer *csv.Writer, transactions []models.Transaction, loc *time.Location) error {
	header := []string{
		"id",
		"date",
		"type",
		"category",
		"amount",
		"description",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, t := range transactions {
		amount := ""
		if t.Amount.Valid {
			amount = t.Amount.Decimal.String()
		}

		record := []string{
			string(t.ID),
			t.Date.At(loc).In(loc).Format(timeLayout),
			strings.ToLower(t.Type),
			t.Category,
			amount,
			t.Description,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func exportFilename(period rangeParams, ext string) string {
	start := period.Range.Start.Format(analytics.DateLayout)
	end := period.Range.End.Format(analytics.DateLayout)
	if start == end {
		return "transactions-" + start + "." + ext
	}
	return "transactions-" + start + "_" + end + "." + ext
}
