package settings

import "testing"

func TestBoolEncoding(t *testing.T) {
	if !parseBool("true") || parseBool("false") || parseBool("") || parseBool("TRUE") {
		t.Fatalf("only the literal \"true\" reads as true")
	}
	for _, v := range []bool{true, false} {
		if parseBool(formatBool(v)) != v {
			t.Fatalf("formatBool(%v) does not round-trip", v)
		}
	}
}
