package cmn

import "testing"

func TestParseBlockFileNameRoundTrip(t *testing.T) {
	id := BlockID{Name: "archive.tar", Number: 12, Type: MetaBlock}
	parsed, err := ParseBlockFileName(id.FileName())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("got %+v want %+v", parsed, id)
	}
}

func TestParseBlockFileNameRejectsMalformed(t *testing.T) {
	cases := []string{"noext", "a.data", "a_7.bogus", "a_x.data"}
	for _, c := range cases {
		if _, err := ParseBlockFileName(c); KindOf(err) != ErrMalformedFrame {
			t.Fatalf("expected ErrMalformedFrame parsing %q, got %v", c, err)
		}
	}
}
