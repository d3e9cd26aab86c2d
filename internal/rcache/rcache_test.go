package rcache

import (
	"regexp"
	"testing"
)

var uriPattern = regexp.MustCompile(`^screen://capture/[a-f0-9]{12}$`)

func TestInsert_URIMatchesSchemePattern(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatal(err)
	}
	uri := c.Insert("display:0", 1000, 1920, 1080, EncodedFrame{Bytes: []byte("x"), Mime: "image/png"})
	if !uriPattern.MatchString(uri) {
		t.Fatalf("uri %q does not match scheme pattern", uri)
	}
}

func TestInsert_NoTwoEntriesShareURI(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		uri := c.Insert("display:0", 1000, 1920, 1080, EncodedFrame{Bytes: []byte("x")})
		if seen[uri] {
			t.Fatalf("duplicate URI %q at iteration %d", uri, i)
		}
		seen[uri] = true
	}
}

func TestGet_RoundTrip(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatal(err)
	}
	frame := EncodedFrame{Bytes: []byte("frame-bytes"), Mime: "image/jpeg"}
	uri := c.Insert("display:0", NowNS(), 100, 100, frame)

	entry, ok := c.Get(uri)
	if !ok {
		t.Fatal("expected hit for just-inserted uri")
	}
	if string(entry.Frame.Bytes) != "frame-bytes" || entry.Frame.Mime != "image/jpeg" {
		t.Fatalf("round-trip mismatch: %+v", entry.Frame)
	}
}

func TestGet_MissReturnsFalse(t *testing.T) {
	c, err := New(10)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("screen://capture/000000000000"); ok {
		t.Fatal("expected miss for unknown uri")
	}
}

func TestEviction_NeverExceedsCapacity(t *testing.T) {
	c, err := New(5)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		c.Insert("display:0", int64(i), 10, 10, EncodedFrame{Bytes: []byte{byte(i)}})
		if c.Len() > 5 {
			t.Fatalf("len %d exceeds capacity 5 at iteration %d", c.Len(), i)
		}
	}
	if c.Len() != 5 {
		t.Fatalf("final len = %d, want 5", c.Len())
	}
}

func TestEviction_IsLRU(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	uriA := c.Insert("a", 1, 1, 1, EncodedFrame{})
	uriB := c.Insert("b", 2, 1, 1, EncodedFrame{})
	// Touch A so B becomes the least-recently-used entry.
	c.Get(uriA)
	uriC := c.Insert("c", 3, 1, 1, EncodedFrame{})

	if _, ok := c.Get(uriB); ok {
		t.Fatal("expected B evicted as least-recently-used")
	}
	if _, ok := c.Get(uriA); !ok {
		t.Fatal("expected A to survive (recently touched)")
	}
	if _, ok := c.Get(uriC); !ok {
		t.Fatal("expected C to survive (just inserted)")
	}
}
