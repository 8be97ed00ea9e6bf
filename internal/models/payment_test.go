package models

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPending, PaymentStatusCompleted, true},
		{PaymentStatusPending, PaymentStatusInactive, true},
		{PaymentStatusPending, PaymentStatusRefunded, false},
		{PaymentStatusCompleted, PaymentStatusRefunded, true},
		{PaymentStatusCompleted, PaymentStatusInactive, true},
		{PaymentStatusCompleted, PaymentStatusPending, false},
		{PaymentStatusRefunded, PaymentStatusRefunded, true},
		{PaymentStatusRefunded, PaymentStatusCompleted, false},
		{PaymentStatusInactive, PaymentStatusCompleted, false},
		{PaymentStatusInactive, PaymentStatusInactive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v; want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseSessionType(t *testing.T) {
	tests := []struct {
		input   string
		want    SessionType
		wantErr bool
	}{
		{"MEETING", SessionTypeMeeting, false},
		{"personal_meeting", SessionTypePersonalMeeting, false},
		{" Expense ", SessionTypeExpense, false},
		{"CLIENT", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSessionType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSessionType(%q) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSessionType(%q) = %q; want %q", tt.input, got, tt.want)
		}
	}
}

func TestScheduledTaskNextDueAfter(t *testing.T) {
	start := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	daily := "FREQ=DAILY"
	broken := "FREQ=SOMETIMES"

	tests := []struct {
		name string
		task ScheduledTask
		now  time.Time
		want time.Time
	}{
		{
			name: "one-time task keeps its due",
			task: ScheduledTask{Due: start, TaskType: ScheduledTaskTypeOneTime},
			now:  start.Add(48 * time.Hour),
			want: start,
		},
		{
			name: "daily rule advances past now",
			task: ScheduledTask{Due: start, TaskType: ScheduledTaskTypeRecurring, RecurringInterval: &daily},
			now:  start.Add(36 * time.Hour),
			want: start.Add(48 * time.Hour),
		},
		{
			name: "unparseable rule falls back to due",
			task: ScheduledTask{Due: start, TaskType: ScheduledTaskTypeRecurring, RecurringInterval: &broken},
			now:  start.Add(time.Hour),
			want: start,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.NextDueAfter(tt.now); !got.Equal(tt.want) {
				t.Errorf("NextDueAfter() = %v; want %v", got, tt.want)
			}
		})
	}
}
