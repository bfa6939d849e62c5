package xdr

import (
	"bytes"
	"testing"
)

func TestOpaqueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"one byte", []byte{0x42}},
		{"four bytes", []byte{0x01, 0x02, 0x03, 0x04}},
		{"five bytes", []byte{0x01, 0x02, 0x03, 0x04, 0x05}},
		{"unique node id", []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			if err := WriteXDROpaque(buf, tt.data); err != nil {
				t.Fatalf("WriteXDROpaque: %v", err)
			}
			if buf.Len()%4 != 0 {
				t.Fatalf("encoded length %d is not 4-byte aligned", buf.Len())
			}
			got, err := DecodeOpaque(buf)
			if err != nil {
				t.Fatalf("DecodeOpaque: %v", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Fatalf("got %v, want %v", got, tt.data)
			}
		})
	}
}

func TestIntegerRoundTrips(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := WriteUint32(buf, 0xAABBCCDD); err != nil {
		t.Fatal(err)
	}
	if err := WriteBool(buf, true); err != nil {
		t.Fatal(err)
	}

	u32, err := DecodeUint32(buf)
	if err != nil || u32 != 0xAABBCCDD {
		t.Fatalf("DecodeUint32 = %x, %v", u32, err)
	}
	b, err := DecodeBool(buf)
	if err != nil || !b {
		t.Fatalf("DecodeBool = %v, %v", b, err)
	}
}

func TestWriteXDRPadding(t *testing.T) {
	tests := []struct {
		dataLen uint32
		want    int
	}{
		{0, 0},
		{1, 3},
		{2, 2},
		{3, 1},
		{4, 0},
		{5, 3},
	}
	for _, tt := range tests {
		buf := new(bytes.Buffer)
		if err := WriteXDRPadding(buf, tt.dataLen); err != nil {
			t.Fatal(err)
		}
		if buf.Len() != tt.want {
			t.Fatalf("dataLen=%d: got %d padding bytes, want %d", tt.dataLen, buf.Len(), tt.want)
		}
	}
}
