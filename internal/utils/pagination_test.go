package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		{" 42 ", 7, 42},
		{"   ", 3, 3},
		{"x", 5, 5},
		{"4x", 5, 5},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestNewPage(t *testing.T) {
	cases := []struct {
		number, size, def, max int
		want                   Page
	}{
		{1, 20, 20, 100, Page{1, 20}},
		{0, 0, 20, 100, Page{1, 20}},
		{-3, -1, 20, 100, Page{1, 20}},
		{2, 500, 20, 100, Page{2, 100}},
		{3, 500, 20, 0, Page{3, 500}},
		{1, 0, 0, 0, Page{1, 1}},
	}
	for _, tc := range cases {
		if got := NewPage(tc.number, tc.size, tc.def, tc.max); got != tc.want {
			t.Fatalf("NewPage(%d, %d, %d, %d) = %+v; want %+v", tc.number, tc.size, tc.def, tc.max, got, tc.want)
		}
	}
}

func TestPage_OffsetAndTotalPages(t *testing.T) {
	p := Page{Number: 3, Size: 10}
	if p.Offset() != 20 {
		t.Fatalf("Offset = %d", p.Offset())
	}
	for total, want := range map[int64]int{0: 0, -1: 0, 1: 1, 10: 1, 11: 2, 30: 3} {
		if got := p.TotalPages(total); got != want {
			t.Fatalf("TotalPages(%d) = %d; want %d", total, got, want)
		}
	}
	if (Page{Number: 1}).TotalPages(5) != 0 {
		t.Fatalf("zero size must report 0 pages")
	}
}
