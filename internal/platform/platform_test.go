package platform

import (
	"reflect"
	"testing"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"jvm", KindJVM, false},
		{"JVM", KindJVM, false},
		{"  native ", KindNative, false},
		{"js", KindJS, false},
		{"wasm", KindWasm, false},
		{"common", KindCommon, false},
		{"android", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewNormalizesTargets(t *testing.T) {
	cases := []struct {
		name    string
		targets []string
		want    string
	}{
		{"nil", nil, ""},
		{"single", []string{"jvm8"}, "jvm8"},
		{"sorted", []string{"jvm11", "jvm8"}, "jvm11+jvm8"},
		{"deduplicated", []string{"jvm8", "jvm8"}, "jvm8"},
		{"trimmed and blank dropped", []string{" jvm8 ", "", "  "}, "jvm8"},
	}
	for _, tc := range cases {
		if got := New("jvm", KindJVM, tc.targets).Targets; got != tc.want {
			t.Errorf("%s: Targets = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestNormalizationGivesValueEquality(t *testing.T) {
	a := New("jvm", KindJVM, []string{"jvm8", "jvm11"})
	b := New("jvm", KindJVM, []string{"jvm11", "jvm8", "jvm11"})
	if a != b {
		t.Errorf("equivalent target sets must compare equal: %v vs %v", a, b)
	}

	seen := map[PlatformData]int{a: 1}
	if seen[b] != 1 {
		t.Error("normalized platforms must key maps interchangeably")
	}
}

func TestTargetList(t *testing.T) {
	p := New("jvm", KindJVM, []string{"jvm11", "jvm8"})
	if got := p.TargetList(); !reflect.DeepEqual(got, []string{"jvm11", "jvm8"}) {
		t.Errorf("TargetList() = %v, want [jvm11 jvm8]", got)
	}
	if got := New("js", KindJS, nil).TargetList(); got != nil {
		t.Errorf("TargetList() on targetless platform = %v, want nil", got)
	}
}

func TestString(t *testing.T) {
	if got := New("js", KindJS, nil).String(); got != "js(js)" {
		t.Errorf("String() = %q, want %q", got, "js(js)")
	}
	got := New("jvm", KindJVM, []string{"jvm8", "jvm11"}).String()
	if got != "jvm(jvm):jvm11+jvm8" {
		t.Errorf("String() = %q, want %q", got, "jvm(jvm):jvm11+jvm8")
	}
}

func TestSortOrdersByNameKindTargets(t *testing.T) {
	ps := []PlatformData{
		New("jvm", KindJVM, []string{"jvm8"}),
		New("js", KindJS, nil),
		New("jvm", KindJVM, nil),
		New("jvm", KindCommon, nil),
	}
	Sort(ps)

	want := []PlatformData{
		New("js", KindJS, nil),
		New("jvm", KindCommon, nil),
		New("jvm", KindJVM, nil),
		New("jvm", KindJVM, []string{"jvm8"}),
	}
	if !reflect.DeepEqual(ps, want) {
		t.Errorf("Sort() = %v, want %v", ps, want)
	}
}
