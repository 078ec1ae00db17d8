package models

import (
	"strings"
	"time"

	"example.com/tg-planner/backend/internal/analytics"
)

type Transaction struct {
	ID          ID        `json:"id"`
	Type        string    `json:"type"`
	Amount      Amount    `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Date        Timestamp `json:"date"`
}

func (t Transaction) RecordDate(loc *time.Location) time.Time {
	return t.Date.At(loc)
}

// Entry приводит транзакцию к записи для агрегации в поясе loc.
func (t Transaction) Entry(loc *time.Location) analytics.Entry {
	return analytics.Entry{
		Date:     t.Date.At(loc),
		Category: t.Category,
		Amount:   t.Amount.NullDecimal,
		Kind:     strings.ToLower(strings.TrimSpace(t.Type)),
	}
}

// Entries приводит список транзакций к записям для агрегации.
func Entries(transactions []Transaction, loc *time.Location) []analytics.Entry {
	entries := make([]analytics.Entry, 0, len(transactions))
	for _, t := range transactions {
		entries = append(entries, t.Entry(loc))
	}
	return entries
}

type Category struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

type Task struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Completed bool      `json:"completed"`
	Date      Timestamp `json:"date"`
}

func (t Task) RecordDate(loc *time.Location) time.Time {
	return t.Date.At(loc)
}

type MatrixTask struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	Quadrant  string    `json:"quadrant,omitempty"`
	Important *bool     `json:"important,omitempty"`
	Urgent    *bool     `json:"urgent,omitempty"`
	Completed bool      `json:"completed"`
	Date      Timestamp `json:"date"`
}

func (m MatrixTask) RecordDate(loc *time.Location) time.Time {
	return m.Date.At(loc)
}

// QuadrantOf определяет квадрант по тегу, а без тега по флагам важности и срочности.
func (m MatrixTask) QuadrantOf() (analytics.Quadrant, bool) {
	if q, ok := analytics.ParseQuadrant(m.Quadrant); ok {
		return q, true
	}
	if m.Important == nil || m.Urgent == nil {
		return 0, false
	}
	return analytics.ClassifyQuadrant(*m.Important, *m.Urgent), true
}
