//go:generate go run go.uber.org/mock/mockgen -source=timeclock_service.go -destination=../mocks/mock_timeclock_service.go -package=mocks
package services

import (
	"time"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type ITimeClockService interface {
	ClockIn(user domain.UserID, note string) error
	ClockOut(user domain.UserID, note string) error
	Status(user domain.UserID) (bool, error)
}

// TimeClockService implements the clock-in/clock-out feature on top of
// the timesheet store. It shares infrastructure with the chat core but
// has no coupling to presence or rooms.
type TimeClockService struct {
	sheets repositories.ITimesheetRepository
}

func NewTimeClockService(sheets repositories.ITimesheetRepository) *TimeClockService {
	return &TimeClockService{sheets: sheets}
}

// ClockIn opens a new time entry. Clocking in twice without clocking
// out is rejected.
func (s *TimeClockService) ClockIn(user domain.UserID, note string) error {
	sheet, err := s.sheets.GetTimesheet(user)
	if err != nil {
		return err
	}
	if sheet.ClockedIn {
		return errors.ErrAlreadyClockedIn
	}

	sheet.ClockedIn = true
	sheet.Entries = append(sheet.Entries, repositories.TimeEntry{
		Start:     time.Now().UTC(),
		StartNote: note,
	})
	return s.sheets.PutTimesheet(user, sheet)
}

// ClockOut closes the open time entry.
func (s *TimeClockService) ClockOut(user domain.UserID, note string) error {
	sheet, err := s.sheets.GetTimesheet(user)
	if err != nil {
		return err
	}
	if !sheet.ClockedIn || len(sheet.Entries) == 0 {
		return errors.ErrNotClockedIn
	}

	last := &sheet.Entries[len(sheet.Entries)-1]
	last.End = time.Now().UTC()
	last.EndNote = note
	sheet.ClockedIn = false
	return s.sheets.PutTimesheet(user, sheet)
}

func (s *TimeClockService) Status(user domain.UserID) (bool, error) {
	sheet, err := s.sheets.GetTimesheet(user)
	if err != nil {
		return false, err
	}
	return sheet.ClockedIn, nil
}
