package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestToday(t *testing.T) {
	tokyo, err := LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	// 2024-03-03 20:00 UTC is already Monday in Tokyo
	clock := func() time.Time { return time.Date(2024, 3, 3, 20, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		loc  *time.Location
		want string
	}{
		{name: "utc", loc: time.UTC, want: "2024-03-03"},
		{name: "tokyo", loc: tokyo, want: "2024-03-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Today(clock, tt.loc); got != tt.want {
				t.Errorf("Today() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateTimezone(t *testing.T) {
	tests := []struct {
		tz   string
		want bool
	}{
		{"", true},
		{"Local", true},
		{"Asia/Tokyo", true},
		{"Mars/Olympus", false},
	}
	for _, tt := range tests {
		if got := ValidateTimezone(tt.tz); got != tt.want {
			t.Errorf("ValidateTimezone(%q) = %v, want %v", tt.tz, got, tt.want)
		}
	}
}

func TestValidateDate(t *testing.T) {
	if !ValidateDate("2024-02-29") {
		t.Error("ValidateDate(2024-02-29) = false")
	}
	if ValidateDate("2024/02/29") {
		t.Error("ValidateDate(2024/02/29) = true")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ExpandPath("~/.config/tenken")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if want := filepath.Join(home, ".config/tenken"); got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}

	if got, _ := ExpandPath("/tmp/x.db"); got != "/tmp/x.db" {
		t.Errorf("ExpandPath(abs) = %q", got)
	}
}
