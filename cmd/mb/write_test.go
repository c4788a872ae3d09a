package main

import "testing"

func TestParseBoolValue(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"1", true, false},
		{"0", false, false},
		{"true", true, false},
		{"false", false, false},
		{"on", true, false},
		{"off", false, false},
		{"ON", true, false},
		{" off ", false, false},
		{"2", false, true},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		got, err := parseBoolValue(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseBoolValue(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseBoolValue(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseBoolValue(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParseBoolValues(t *testing.T) {
	got, err := parseBoolValues([]string{"1,0", "on off", "true"})
	if err != nil {
		t.Fatalf("parseBoolValues failed: %v", err)
	}
	want := []bool{true, false, true, false, true}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("values[%d]: expected %v, got %v", i, v, got[i])
		}
	}

	if _, err := parseBoolValues([]string{"1,banana"}); err == nil {
		t.Error("expected error for invalid value in list")
	}
}

func TestParseUint16Value(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"0", 0, false},
		{"1234", 1234, false},
		{"65535", 65535, false},
		{"0xFF00", 0xFF00, false},
		{"0X00ff", 0x00FF, false},
		{"0b1010", 10, false},
		{"0o17", 15, false},
		{"65536", 0, true},
		{"-1", 0, true},
		{"0xG", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseUint16Value(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseUint16Value(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseUint16Value(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseUint16Value(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestParseUint16Values(t *testing.T) {
	got, err := parseUint16Values([]string{"100,200", "0x1234 0b11"})
	if err != nil {
		t.Fatalf("parseUint16Values failed: %v", err)
	}
	want := []uint16{100, 200, 0x1234, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("values[%d]: expected %d, got %d", i, v, got[i])
		}
	}
}
