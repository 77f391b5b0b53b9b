package xlate

import "testing"

// These cases pin decodeBitmaskImmediate against the ARM64 "DecodeBitMasks"
// algorithm (ARM ARM, AArch64) for the two element-size extremes: sf=true
// forces N=1 (element size fixed at 64, so imms/immr map directly to
// run-length-1 and rotation with no further element-size decoding to get
// wrong), and sf=false with small imms exercises the N=0 / esize=32 path.
func TestDecodeBitmaskImmediate64Bit(t *testing.T) {
	cases := []struct {
		name       string
		immr, imms int
		want       uint64
	}{
		{"run-of-1-no-rotate", 0, 0, 0x1},
		{"run-of-4-no-rotate", 0, 3, 0xF},
		{"run-of-1-rotated-4", 4, 0, 0x1000000000000000},
		{"all-ones-saturates-at-64", 1, 63, 0xFFFFFFFFFFFFFFFF},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := decodeBitmaskImmediate(true, c.immr, c.imms)
			if got != c.want {
				t.Fatalf("decodeBitmaskImmediate(true, %d, %d) = 0x%x, want 0x%x", c.immr, c.imms, got, c.want)
			}
		})
	}
}

func TestDecodeBitmaskImmediate32Bit(t *testing.T) {
	cases := []struct {
		name       string
		immr, imms int
		want       uint64
	}{
		{"run-of-1-esize-32", 0, 0, 0x1},
		{"run-of-8-esize-32", 0, 7, 0xFF},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := decodeBitmaskImmediate(false, c.immr, c.imms)
			if got != c.want {
				t.Fatalf("decodeBitmaskImmediate(false, %d, %d) = 0x%x, want 0x%x", c.immr, c.imms, got, c.want)
			}
		})
	}
}

// TestDecodeBitmaskImmediateNeverExceedsWidth guards against a result that
// sets bits above the operand width, which would corrupt every caller that
// ORs/ANDs this value directly into a 32-bit destination.
func TestDecodeBitmaskImmediateNeverExceedsWidth(t *testing.T) {
	for imms := 0; imms < 32; imms++ {
		got := decodeBitmaskImmediate(false, 5, imms)
		if got > 0xFFFFFFFF {
			t.Fatalf("decodeBitmaskImmediate(false, 5, %d) = 0x%x exceeds 32-bit width", imms, got)
		}
	}
}
