package wizard

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type Kind string

const (
	KindText   Kind = "text"
	KindDate   Kind = "date"
	KindEnum   Kind = "enum"
	KindNumber Kind = "number"
)

var (
	ErrRequired      = errors.New("answer is required")
	ErrInvalidOption = errors.New("unknown option")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrInvalidNumber = errors.New("answer must be a number")
	ErrTooLong       = errors.New("answer is too long")
	ErrFinished      = errors.New("wizard is finished")
	ErrAtFirstStep   = errors.New("already at the first step")
)

// Step описание одного шага мастера.
type Step struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Kind      Kind     `json:"kind"`
	Required  bool     `json:"required"`
	Options   []string `json:"options,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

type StepError struct {
	StepID string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Validate проверяет ответ на шаг. Пустой ответ допустим только для необязательного шага.
func (s Step) Validate(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if s.Required {
			return ErrRequired
		}
		return nil
	}

	if s.MaxLength > 0 && utf8.RuneCountInString(value) > s.MaxLength {
		return ErrTooLong
	}

	switch s.Kind {
	case KindEnum:
		if !slices.Contains(s.Options, value) {
			return ErrInvalidOption
		}
	case KindDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return ErrInvalidDate
		}
	case KindNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return ErrInvalidNumber
		}
	}
	return nil
}

// Sequencer линейный курсор по шагам мастера.
type Sequencer struct {
	steps   []Step
	cursor  int
	answers map[string]string
}

func NewSequencer(steps []Step) *Sequencer {
	return &Sequencer{
		steps:   slices.Clone(steps),
		answers: make(map[string]string, len(steps)),
	}
}

// Current возвращает текущий шаг; false, если мастер пройден.
func (s *Sequencer) Current() (Step, bool) {
	if s.Done() {
		return Step{}, false
	}
	return s.steps[s.cursor], true
}

// Answer проверяет ответ на текущий шаг, сохраняет его и переходит дальше.
func (s *Sequencer) Answer(value string) error {
	step, ok := s.Current()
	if !ok {
		return ErrFinished
	}

	if err := step.Validate(value); err != nil {
		return &StepError{StepID: step.ID, Err: err}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		delete(s.answers, step.ID)
	} else {
		s.answers[step.ID] = value
	}
	s.cursor++
	return nil
}

// Back возвращает курсор на предыдущий шаг, сохраняя введенные ответы.
func (s *Sequencer) Back() error {
	if s.cursor == 0 {
		return ErrAtFirstStep
	}
	s.cursor--
	return nil
}

func (s *Sequencer) Done() bool {
	return s.cursor >= len(s.steps)
}

// Progress возвращает номер текущего шага и общее их число.
func (s *Sequencer) Progress() (int, int) {
	return s.cursor, len(s.steps)
}

func (s *Sequencer) Answers() map[string]string {
	return maps.Clone(s.answers)
}

// Replay проходит все шаги с готовыми ответами и возвращает принятые.
func Replay(steps []Step, answers map[string]string) (map[string]string, error) {
	seq := NewSequencer(steps)
	for !seq.Done() {
		step, _ := seq.Current()
		if err := seq.Answer(answers[step.ID]); err != nil {
			return nil, err
		}
	}
	return seq.Answers(), nil
}
