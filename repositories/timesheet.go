//go:generate go run go.uber.org/mock/mockgen -source=timesheet.go -destination=../mocks/mock_timesheet_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
)

type ITimesheetRepository interface {
	GetTimesheet(user domain.UserID) (Timesheet, error)
	PutTimesheet(user domain.UserID, sheet Timesheet) error
}

// Timesheet records a user's clock-in ranges. At most one entry is
// open (End zero) at any time; ClockedIn mirrors that so status reads
// stay a single field check.
type Timesheet struct {
	ClockedIn bool        `json:"clocked_in"`
	Entries   []TimeEntry `json:"entries"`
}

type TimeEntry struct {
	Start     time.Time `json:"start"`
	StartNote string    `json:"start_note,omitempty"`
	End       time.Time `json:"end,omitzero"`
	EndNote   string    `json:"end_note,omitempty"`
}

type TimesheetRepository struct {
	db *badger.DB
}

func NewTimesheetRepository(db *badger.DB) TimesheetRepository {
	return TimesheetRepository{db: db}
}

func timesheetKey(user domain.UserID) []byte {
	return []byte("timesheet:" + string(user))
}

// GetTimesheet returns the stored sheet, or an empty one for a user
// who never clocked in.
func (t TimesheetRepository) GetTimesheet(user domain.UserID) (Timesheet, error) {
	var sheet Timesheet
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(timesheetKey(user))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sheet)
		})
	})
	return sheet, err
}

func (t TimesheetRepository) PutTimesheet(user domain.UserID, sheet Timesheet) error {
	data, err := json.Marshal(sheet)
	if err != nil {
		return err
	}
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(timesheetKey(user), data)
	})
}
