package core

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0đ"},
		{500, "500đ"},
		{15000, "15.000đ"},
		{1234567, "1.234.567đ"},
		{10000000, "10.000.000đ"},
		{-1500, "-1.500đ"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatAmountShort(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{999, "999"},
		{1000, "1K"},
		{15000, "15K"},
		{1000000, "1M"},
		{1500000, "1.5M"},
		{2000000, "2M"},
	}
	for _, tc := range cases {
		if got := FormatAmountShort(tc.in); got != tc.want {
			t.Errorf("FormatAmountShort(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
