package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"buscador-gpt/internal/model"
	"buscador-gpt/internal/repository"
)

// ActivityReportRow is one user's activity for one day, in the admin panel layout.
type ActivityReportRow struct {
	UserID     uint   `json:"userId"`
	User       string `json:"usuario"`
	Date       string `json:"fecha"`
	FirstSeen  string `json:"horaEntrada"`
	LastSeen   string `json:"horaSalida"`
	ActiveTime string `json:"tiempoActivo"`
	IP         string `json:"ip"`
	Searches   int    `json:"busquedas"`
}

var activityCSVHeader = []string{"usuario", "fecha", "horaEntrada", "horaSalida", "tiempoActivo", "ip", "busquedas"}

type ActivityService struct {
	repo *repository.ActivityRepository
	loc  *time.Location
	now  func() time.Time
}

func NewActivityService(repo *repository.ActivityRepository, loc *time.Location) *ActivityService {
	if loc == nil {
		loc = time.Local
	}
	return &ActivityService{repo: repo, loc: loc, now: time.Now}
}

// ParseDay reads YYYY-MM-DD in the report location; empty means today.
func (s *ActivityService) ParseDay(raw string) (time.Time, error) {
	if raw == "" {
		return s.now().In(s.loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return day, nil
}

func (s *ActivityService) DailyReport(ctx context.Context, day time.Time) ([]ActivityReportRow, error) {
	day = day.In(s.loc)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	activities, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return buildReport(activities, from, s.loc), nil
}

func buildReport(activities []model.SearchActivity, day time.Time, loc *time.Location) []ActivityReportRow {
	type span struct {
		first, last model.SearchActivity
		count       int
	}
	spans := make(map[uint]*span)
	for _, a := range activities {
		sp, ok := spans[a.UserID]
		if !ok {
			spans[a.UserID] = &span{first: a, last: a, count: 1}
			continue
		}
		sp.count++
		if a.CreatedAt.Before(sp.first.CreatedAt) {
			sp.first = a
		}
		if !a.CreatedAt.Before(sp.last.CreatedAt) {
			sp.last = a
		}
	}

	rows := make([]ActivityReportRow, 0, len(spans))
	for userID, sp := range spans {
		active := sp.last.CreatedAt.Sub(sp.first.CreatedAt)
		rows = append(rows, ActivityReportRow{
			UserID:     userID,
			User:       sp.last.Email,
			Date:       day.Format("2006-01-02"),
			FirstSeen:  sp.first.CreatedAt.In(loc).Format("15:04"),
			LastSeen:   sp.last.CreatedAt.In(loc).Format("15:04"),
			ActiveTime: fmt.Sprintf("%02d:%02d", int(active.Hours()), int(active.Minutes())%60),
			IP:         sp.last.ClientIP,
			Searches:   sp.count,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FirstSeen != rows[j].FirstSeen {
			return rows[i].FirstSeen < rows[j].FirstSeen
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rows
}

func ReportCSV(rows []ActivityReportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(activityCSVHeader); err != nil {
		return nil, fmt.Errorf("write report header failed: %w", err)
	}
	for _, r := range rows {
		record := []string{r.User, r.Date, r.FirstSeen, r.LastSeen, r.ActiveTime, r.IP, strconv.Itoa(r.Searches)}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write report row failed: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush report failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Purge deletes activity older than retention and returns the number of rows removed.
func (s *ActivityService) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return s.repo.DeleteBefore(ctx, s.now().Add(-retention))
}

// PublishActivity writes the record synchronously. It stands in for the
// RabbitMQ publisher when no broker is configured.
func (s *ActivityService) PublishActivity(ctx context.Context, activity model.SearchActivity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now()
	}
	return s.repo.Create(ctx, &activity)
}
