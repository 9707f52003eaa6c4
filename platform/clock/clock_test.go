package clock

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "10:00", want: At(10, 0)},
		{in: "17:01:59", want: At(17, 1)},
		{in: "25:00", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Parse(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMicrosRoundTrip(t *testing.T) {
	c := At(14, 35)
	if got := FromMicros(c.Micros()); got != c {
		t.Fatalf("round trip = %v, want %v", got, c)
	}
}

func TestNextBusinessDay(t *testing.T) {
	friday := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	if got := NextBusinessDay(friday); got.Weekday() != time.Monday || got.Day() != 19 {
		t.Fatalf("friday -> %v, want monday 19", got)
	}
	saturday := friday.AddDate(0, 0, 1)
	if got := NextBusinessDay(saturday); got.Day() != 19 {
		t.Fatalf("saturday -> %v, want monday 19", got)
	}
	tuesday := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	if got := NextBusinessDay(tuesday); got.Day() != 14 {
		t.Fatalf("tuesday -> %v, want 14", got)
	}
}

func TestDisplay(t *testing.T) {
	d := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	c := At(9, 30)
	if got := Display(d, &c); got != "05/03/2026 09:30" {
		t.Fatalf("Display = %q", got)
	}
	if got := Display(d, nil); got != "05/03/2026" {
		t.Fatalf("Display without time = %q", got)
	}
}

func TestInstantKeepsWallClock(t *testing.T) {
	wall := Combine(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), At(10, 0))
	got := Instant(wall)
	if got.Location() != Location {
		t.Fatalf("location = %v", got.Location())
	}
	if got.Hour() != 10 || got.Day() != 15 {
		t.Fatalf("Instant = %v, want 15th 10:00 local", got)
	}
	if got.Equal(wall) {
		t.Fatalf("Instant should not equal the UTC wall value")
	}
}
