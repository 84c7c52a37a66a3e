package bytecode

import "testing"

func TestRegisterString(t *testing.T) {
	tests := []struct {
		name string
		reg  Register
		want string
	}{
		{"local", Register{Kind: RegLocal, Index: 3}, "l3"},
		{"param", Register{Kind: RegParam, Index: 0}, "p0"},
		{"closure", Register{Kind: RegClosure, Index: 7}, "e7"},
		{"array indexed", Register{Kind: RegArray, Index: 2}, "a2"},
		{"local whole-array", Register{Kind: RegLocalArray}, "l*"},
		{"param whole-array", Register{Kind: RegParamArray}, "p*"},
		{"closure whole-array", Register{Kind: RegClosureArray}, "e*"},
		{"array whole-array", Register{Kind: RegArrayArray}, "a*"},
		{"exn", Register{Kind: RegExn}, "exn"},
		{"invalid", Register{}, "<invalid register>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reg.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegisterValid(t *testing.T) {
	if (Register{}).Valid() {
		t.Fatal("zero Register should be invalid")
	}
	if !(Register{Kind: RegLocal, Index: 0}).Valid() {
		t.Fatal("l0 should be valid")
	}
}

func TestRegisterIsWholeArray(t *testing.T) {
	tests := []struct {
		kind RegisterKind
		want bool
	}{
		{RegLocal, false},
		{RegParam, false},
		{RegClosure, false},
		{RegArray, false},
		{RegExn, false},
		{RegLocalArray, true},
		{RegParamArray, true},
		{RegClosureArray, true},
		{RegArrayArray, true},
	}
	for _, tt := range tests {
		if got := (Register{Kind: tt.kind}).IsWholeArray(); got != tt.want {
			t.Errorf("IsWholeArray(%v) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
