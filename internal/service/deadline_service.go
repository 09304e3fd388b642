package service

import (
	"time"

	"github.com/eduops/class-review-api/internal/models"
	"github.com/eduops/class-review-api/pkg/config"
	appErrors "github.com/eduops/class-review-api/pkg/errors"
)

// DeadlineService decides whether a weekly-review submission is currently
// allowed. Admins may write past the cutoff, flagged as an override so the
// calling UI can demand an explicit confirmation.
type DeadlineService struct {
	cfg config.DeadlineConfig
}

// NewDeadlineService constructs the gate from the configured cutoff rule.
func NewDeadlineService(cfg config.DeadlineConfig) *DeadlineService {
	return &DeadlineService{cfg: cfg}
}

// Evaluate computes the gate flags for the reporting week. A cutoff rule
// outside the representable range is the only error this service produces.
func (s *DeadlineService) Evaluate(window models.ReportingWindow, now time.Time, role models.UserRole) (models.DeadlineStatus, error) {
	deadline, err := s.Deadline(window)
	if err != nil {
		return models.DeadlineStatus{}, err
	}
	open := !now.After(deadline)
	isAdmin := role == models.RoleAdmin
	return models.DeadlineStatus{
		Open:       open,
		Allowed:    open || isAdmin,
		IsOverride: !open && isAdmin,
		Deadline:   deadline,
	}, nil
}

// Deadline returns the cutoff timestamp for the reporting week. The
// configured weekday is resolved against the window's Monday start.
func (s *DeadlineService) Deadline(window models.ReportingWindow) (time.Time, error) {
	if s.cfg.Weekday < 0 || s.cfg.Weekday > 6 ||
		s.cfg.Hour < 0 || s.cfg.Hour > 23 ||
		s.cfg.Minute < 0 || s.cfg.Minute > 59 {
		return time.Time{}, appErrors.Clone(appErrors.ErrMisconfigured, "invalid review deadline configuration")
	}
	start := window.StartDate
	offset := (s.cfg.Weekday - int(start.Weekday()) + 7) % 7
	day := start.AddDate(0, 0, offset)
	return time.Date(day.Year(), day.Month(), day.Day(), s.cfg.Hour, s.cfg.Minute, 0, 0, start.Location()), nil
}
