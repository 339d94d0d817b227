package store

import (
	"time"

	"github.com/erazemk/knjiznica/internal/model"
)

// DefaultKey is the backend key holding the dataset.
const DefaultKey = "library-ui-state/v1"

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

// Seed returns the demo dataset used on first run and on reset.
func Seed() *model.Snapshot {
	return &model.Snapshot{
		Books: []model.Book{
			{
				ID:        "bk-clean-code",
				Title:     "Clean Code",
				Author:    "Robert C. Martin",
				ISBN:      "9780132350884",
				Category:  "Software Engineering",
				CreatedAt: at(2024, time.November, 1, 8, 30),
			},
			{
				ID:        "bk-designing-data",
				Title:     "Designing Data-Intensive Applications",
				Author:    "Martin Kleppmann",
				ISBN:      "9781449373320",
				Category:  "Data Systems",
				CreatedAt: at(2024, time.November, 2, 8, 30),
			},
			{
				ID:        "bk-patterns-of-enterprise",
				Title:     "Patterns of Enterprise Application Architecture",
				Author:    "Martin Fowler",
				ISBN:      "9780321127426",
				Category:  "Architecture",
				CreatedAt: at(2024, time.November, 3, 8, 30),
			},
		},
		Members: []model.Member{
			{
				ID:       "mb-sara",
				Name:     "Sara Winters",
				Email:    "sara.winters@example.com",
				Phone:    "+1 (312) 555-1221",
				JoinedAt: at(2024, time.October, 12, 10, 0),
			},
			{
				ID:       "mb-rahul",
				Name:     "Rahul Mehta",
				Email:    "rahul.mehta@example.com",
				Phone:    "+91 9988 112233",
				JoinedAt: at(2024, time.October, 18, 11, 30),
			},
			{
				ID:       "mb-lina",
				Name:     "Lina Ortiz",
				Email:    "lina.ortiz@example.com",
				Phone:    "+44 20 1234 7788",
				JoinedAt: at(2024, time.October, 25, 16, 45),
			},
		},
		Loans: []model.Loan{
			{
				ID:         "ln-001",
				BookID:     "bk-designing-data",
				MemberID:   "mb-sara",
				BorrowedOn: at(2024, time.November, 10, 9, 12),
				DueDate:    "2024-12-05",
				ReturnedOn: nil,
			},
		},
	}
}
