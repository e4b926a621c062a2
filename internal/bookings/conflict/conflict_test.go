package conflict

import (
	"errors"
	"testing"

	bookingserrors "bookline/internal/bookings/errors"
	"bookline/pkg/model"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	iv, err := NewInterval(start, end)
	if err != nil {
		t.Fatalf("NewInterval(%s, %s): %v", start, end, err)
	}
	return iv
}

func appt(staff, date, start, end string, status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{StaffID: staff, Date: date, StartTime: start, EndTime: end, Status: status}
}

func TestNewInterval(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       Interval
		wantErr    error
	}{
		{name: "valid", start: "09:30", end: "10:15", want: Interval{Start: 570, End: 615}},
		{name: "midnight start", start: "00:00", end: "00:30", want: Interval{Start: 0, End: 30}},
		{name: "end equals start", start: "10:00", end: "10:00", wantErr: bookingserrors.ErrInvalidTimeRange},
		{name: "end before start", start: "11:00", end: "10:00", wantErr: bookingserrors.ErrInvalidTimeRange},
		{name: "bad clock", start: "25:00", end: "26:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInterval(tt.start, tt.end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if tt.want == (Interval{}) {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	clocks := []string{"09:00", "09:15", "09:30", "10:00", "10:30", "11:00"}
	var intervals []Interval
	for i := range clocks {
		for j := i + 1; j < len(clocks); j++ {
			intervals = append(intervals, mustInterval(t, clocks[i], clocks[j]))
		}
	}

	for _, a := range intervals {
		for _, b := range intervals {
			if Overlaps(a, b) != Overlaps(b, a) {
				t.Fatalf("asymmetric overlap for %+v and %+v", a, b)
			}
		}
		if !Overlaps(a, a) {
			t.Fatalf("interval %+v does not overlap itself", a)
		}
	}
}

func TestHasConflict(t *testing.T) {
	existing := []*model.Appointment{
		appt("staff-1", "2026-03-02", "10:00", "10:30", model.StatusConfirmed),
		appt("staff-1", "2026-03-02", "12:00", "13:00", model.StatusCancelled),
		appt("staff-1", "2026-03-02", "14:00", "15:00", model.StatusNoShow),
		appt("staff-2", "2026-03-02", "11:00", "12:00", model.StatusPending),
		appt("staff-1", "2026-03-03", "11:00", "12:00", model.StatusPending),
	}

	tests := []struct {
		name       string
		start, end string
		want       bool
	}{
		{name: "overlaps confirmed", start: "10:15", end: "10:45", want: true},
		{name: "contains existing", start: "09:00", end: "11:00", want: true},
		{name: "touches end", start: "10:30", end: "11:00", want: false},
		{name: "touches start", start: "09:30", end: "10:00", want: false},
		{name: "cancelled slot is free", start: "12:00", end: "13:00", want: false},
		{name: "no-show slot is free", start: "14:15", end: "14:45", want: false},
		{name: "other staff ignored", start: "11:00", end: "11:30", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasConflict(existing, "staff-1", "2026-03-02", mustInterval(t, tt.start, tt.end))
			if got != tt.want {
				t.Errorf("HasConflict(%s-%s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestHasConflict_SequentialBookings(t *testing.T) {
	var calendar []*model.Appointment
	book := func(start, end string) bool {
		iv := mustInterval(t, start, end)
		if HasConflict(calendar, "s", "2026-03-02", iv) {
			return false
		}
		calendar = append(calendar, appt("s", "2026-03-02", start, end, model.StatusPending))
		return true
	}

	if !book("10:00", "10:30") {
		t.Fatal("first booking rejected")
	}
	if book("10:15", "10:45") {
		t.Fatal("overlapping booking accepted")
	}
	if !book("10:30", "11:00") {
		t.Fatal("adjacent booking rejected")
	}
}

func TestFirstConflict_IgnoresMalformed(t *testing.T) {
	existing := []*model.Appointment{
		appt("s", "2026-03-02", "bad", "10:30", model.StatusPending),
	}
	if got := FirstConflict(existing, "s", "2026-03-02", mustInterval(t, "10:00", "10:30")); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
