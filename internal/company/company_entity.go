package company

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkWeekMask is a bitmask over time.Weekday (bit 0 = Sunday). A set bit
// marks a working day.
type WorkWeekMask int

func NewWorkWeekMask(weekdays ...time.Weekday) WorkWeekMask {
	var m WorkWeekMask
	for _, wd := range weekdays {
		m |= 1 << uint(wd)
	}
	return m
}

func (m WorkWeekMask) Contains(wd time.Weekday) bool {
	return m&(1<<uint(wd)) != 0
}

func (m WorkWeekMask) Weekdays() []int {
	days := make([]int, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if m.Contains(wd) {
			days = append(days, int(wd))
		}
	}
	return days
}

// IncludesWeekend reports whether Saturday or Sunday is a working day.
func (m WorkWeekMask) IncludesWeekend() bool {
	return m.Contains(time.Saturday) || m.Contains(time.Sunday)
}

// DefaultWorkWeek is Monday through Friday.
var DefaultWorkWeek = NewWorkWeekMask(
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
)

type Company struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string    `gorm:"type:varchar(150);not null"`

	WorkWeekMask  WorkWeekMask `gorm:"type:int;not null;default:62"` // Mon-Fri
	WorkStartTime string       `gorm:"type:varchar(5);not null;default:'09:00'"`
	WorkEndTime   string       `gorm:"type:varchar(5);not null;default:'18:00'"`

	SLAHours               int  `gorm:"type:int;not null;default:48"`
	NegativeBalanceAllowed bool `gorm:"not null;default:false"`
	LeaveYearStartMonth    int  `gorm:"type:int;not null;default:1"`

	ProbationPeriodDays   int  `gorm:"type:int;not null;default:90"`
	ProbationLeaveAllowed bool `gorm:"not null;default:false"`

	IsActive  bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Company) TableName() string {
	return "companies"
}

// Holiday is a non-working date. CompanyID is nil for public holidays shared
// across the jurisdiction and set for company-specific closures.
type Holiday struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID *uuid.UUID `gorm:"type:uuid;index"`
	Date      time.Time  `gorm:"type:date;not null;index"`
	Name      string     `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time
}

func (Holiday) TableName() string {
	return "holidays"
}

// LeaveYearFor returns the leave year a date falls into given the company's
// configured year start month.
func (c *Company) LeaveYearFor(date time.Time) int {
	year := date.Year()
	if int(date.Month()) < c.LeaveYearStartMonth {
		year--
	}
	return year
}
