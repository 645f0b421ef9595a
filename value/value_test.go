package value

import (
	"math"
	"testing"
)

func TestFormatNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{150, "150"},
		{-60, "-60"},
		{1.5, "1.5"},
		{math.Sqrt(14), "3.7416573867739"},
		{1e20, "1e+20"},
		{math.NaN(), "nan"},
		{math.Inf(1), "infinity"},
		{math.Inf(-1), "-infinity"},
	}

	for _, tt := range tests {
		if got := FormatNum(tt.in); got != tt.want {
			t.Errorf("FormatNum(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null, false},
		{"false", False, false},
		{"true", True, true},
		{"zero", Num(0), true},
		{"empty string", String(""), true},
		{"list", NewList(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	l := NewList(Num(1))
	f := &Foreign{Handle: 7}

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nulls", Null, Null, true},
		{"numbers", Num(2), Num(2), true},
		{"different numbers", Num(2), Num(3), false},
		{"strings", String("a"), String("a"), true},
		{"num vs string", Num(1), String("1"), false},
		{"bools", Bool(true), True, true},
		{"same list", l, l, true},
		{"equal lists are distinct", NewList(Num(1)), NewList(Num(1)), false},
		{"ranges", FromRange(&Range{1, 3, true}), FromRange(&Range{1, 3, true}), true},
		{"same foreign", FromForeign(f), FromForeign(f), true},
		{"different foreign", FromForeign(f), FromForeign(&Foreign{Handle: 7}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	if Num(4).Kind() != KindNum || Num(4).AsNum() != 4 {
		t.Error("Num accessor")
	}
	if String("x").AsString() != "x" {
		t.Error("String accessor")
	}
	if !Bool(true).AsBool() || Bool(false).AsBool() {
		t.Error("Bool accessor")
	}
	if Num(1).AsList() != nil || Num(1).AsForeign() != nil || Num(1).AsClass() != nil {
		t.Error("reference accessors on a number should be nil")
	}
	if !Null.IsNull() || (Value{}).Kind() != KindNull {
		t.Error("zero Value should be null")
	}
	if KindForeign.String() != "Foreign" {
		t.Errorf("KindForeign.String() = %q", KindForeign.String())
	}
}
