package pix

import (
	"strings"
	"testing"
)

func TestPayload(t *testing.T) {
	merchant := Merchant{Key: "pagamentos@example.com", Name: "Vira da Brew", City: "Sao Paulo"}

	t.Run("carries the mandatory fields", func(t *testing.T) {
		payload := Payload(merchant, "order-1", 6001)

		if !strings.HasPrefix(payload, "000201") {
			t.Errorf("payload must start with the format indicator, got %s", payload[:8])
		}
		for _, want := range []string{"br.gov.bcb.pix", "pagamentos@example.com", "5303986", "60.01", "5802BR", "Vira da Brew", "Sao Paulo", "order-1"} {
			if !strings.Contains(payload, want) {
				t.Errorf("payload missing %q: %s", want, payload)
			}
		}
	})

	t.Run("ends with a four digit uppercase hex CRC", func(t *testing.T) {
		payload := Payload(merchant, "order-1", 6001)

		idx := strings.LastIndex(payload, "6304")
		if idx == -1 || idx != len(payload)-8 {
			t.Fatalf("CRC field not at payload tail: %s", payload)
		}
		crc := payload[len(payload)-4:]
		for _, c := range crc {
			if !strings.ContainsRune("0123456789ABCDEF", c) {
				t.Errorf("CRC %q is not uppercase hex", crc)
			}
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		a := Payload(merchant, "order-2", 12345)
		b := Payload(merchant, "order-2", 12345)
		if a != b {
			t.Errorf("same inputs produced different payloads:\n%s\n%s", a, b)
		}
	})

	t.Run("renders whole real amounts with two decimals", func(t *testing.T) {
		if got := amount(100); got != "1.00" {
			t.Errorf("expected 1.00, got %s", got)
		}
		if got := amount(1); got != "0.01" {
			t.Errorf("expected 0.01, got %s", got)
		}
		if got := amount(123456); got != "1234.56" {
			t.Errorf("expected 1234.56, got %s", got)
		}
	})

	t.Run("truncates oversized merchant fields", func(t *testing.T) {
		long := Merchant{Key: "k@example.com", Name: strings.Repeat("a", 60), City: strings.Repeat("b", 40)}
		payload := Payload(long, "order-3", 100)

		if strings.Contains(payload, strings.Repeat("a", 26)) {
			t.Error("merchant name was not truncated to 25 chars")
		}
		if strings.Contains(payload, strings.Repeat("b", 16)) {
			t.Error("merchant city was not truncated to 15 chars")
		}
	})
}

func TestCRC16(t *testing.T) {
	// Known CRC-16/CCITT-FALSE check value.
	if got := crc16("123456789"); got != 0x29B1 {
		t.Errorf("expected 0x29B1, got 0x%04X", got)
	}
}

func TestQRCodePNG(t *testing.T) {
	payload := Payload(Merchant{Key: "k@example.com", Name: "Vira", City: "SP"}, "order-1", 6001)

	png, err := QRCodePNG(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("empty image")
	}
	// PNG signature.
	if string(png[1:4]) != "PNG" {
		t.Errorf("not a PNG image: % x", png[:8])
	}
}
