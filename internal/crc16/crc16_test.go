package crc16

import "testing"

// standardResidue is CRC(msg ∥ CRC(msg)) for this poly/init/xorOut
// combination; it is a constant independent of msg (the self-check
// property described by the wire spec).
const standardResidue = 0xE2F0

func TestComputeKnownVectors(t *testing.T) {
	// "123456789" is the standard CRC check string used across CRC variant
	// test suites.
	got := Compute([]byte("123456789"))
	if got != 0xD64E {
		t.Fatalf("Compute(123456789) = %#04x, want 0xD64E", got)
	}
}

func TestSelfCheckResidue(t *testing.T) {
	msgs := [][]byte{
		{},
		[]byte("A"),
		[]byte("123456789"),
		{0x01, 0x02, 0x03, 0x04},
		{0x12, 0x34, 0x00, 0x8C, 0xFF},
	}

	for _, msg := range msgs {
		extended := Append(append([]byte{}, msg...))
		residue := Compute(extended)
		if residue != standardResidue {
			t.Fatalf("msg=%v: residue = %#04x, want %#04x", msg, residue, standardResidue)
		}
		if !Verify(extended) {
			t.Fatalf("msg=%v: Verify failed on its own CRC-extended form", msg)
		}
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	framed := Append([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	framed[0] ^= 0xFF
	if Verify(framed) {
		t.Fatal("Verify should reject corrupted data")
	}
}

func TestVerifyRejectsShortInput(t *testing.T) {
	if Verify([]byte{0x01}) {
		t.Fatal("Verify should reject input shorter than 2 bytes")
	}
	if Verify(nil) {
		t.Fatal("Verify should reject nil input")
	}
}

func TestAppendBigEndian(t *testing.T) {
	msg := []byte{0xAA}
	crc := Compute(msg)
	extended := Append(append([]byte{}, msg...))
	if len(extended) != len(msg)+2 {
		t.Fatalf("Append grew length by %d, want 2", len(extended)-len(msg))
	}
	gotCrc := uint16(extended[len(extended)-2])<<8 | uint16(extended[len(extended)-1])
	if gotCrc != crc {
		t.Fatalf("appended CRC %#04x != Compute %#04x", gotCrc, crc)
	}
}
