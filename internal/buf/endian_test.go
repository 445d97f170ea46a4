package buf

import "testing"

func TestI64LE(t *testing.T) {
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	if got := I64LE(data); got != int64(-0x1032547698badcff) {
		t.Fatalf("I64LE = %d, want %d", got, int64(-0x1032547698badcff))
	}
	if I64LE([]byte{0xAA}) != 0 {
		t.Fatalf("short reads should return 0")
	}
}

func TestPutI64LE_RoundTrip(t *testing.T) {
	word := make([]byte, 8)

	PutI64LE(word, -48)
	if got := I64LE(word); got != -48 {
		t.Fatalf("I64LE after PutI64LE(-48) = %d", got)
	}

	short := []byte{0x11, 0x22}
	PutI64LE(short, 1)
	if short[0] != 0x11 || short[1] != 0x22 {
		t.Fatalf("short writes must not modify the buffer: %v", short)
	}
}
