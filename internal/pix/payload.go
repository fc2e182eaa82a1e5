// Package pix builds static "copia e cola" payloads following the Banco
// Central EMV QR specification, plus the matching QR code image.
package pix

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Merchant identifies the PIX receiver printed into every payload.
type Merchant struct {
	Key  string
	Name string
	City string
}

const (
	idPayloadFormat          = "00"
	idMerchantAccountInfo    = "26"
	idMerchantCategoryCode   = "52"
	idTransactionCurrency    = "53"
	idTransactionAmount      = "54"
	idCountryCode            = "58"
	idMerchantName           = "59"
	idMerchantCity           = "60"
	idAdditionalData         = "62"
	idCRC                    = "63"
	accountInfoGUI           = "00"
	accountInfoKey           = "01"
	additionalDataTxID       = "05"
	pixGUI                   = "br.gov.bcb.pix"
	currencyBRL              = "986"
	countryBR                = "BR"
	merchantCategoryUnlisted = "0000"
)

func field(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// amount renders centavos as the decimal string the payload carries.
func amount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// truncate keeps EMV text fields inside their spec limits.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// Payload assembles the full static payload for one charge. txid ties the
// payment back to the order; cents is the exact charge amount.
func Payload(m Merchant, txid string, cents int64) string {
	account := field(accountInfoGUI, pixGUI) + field(accountInfoKey, m.Key)
	additional := field(additionalDataTxID, truncate(txid, 25))

	var b strings.Builder
	b.WriteString(field(idPayloadFormat, "01"))
	b.WriteString(field(idMerchantAccountInfo, account))
	b.WriteString(field(idMerchantCategoryCode, merchantCategoryUnlisted))
	b.WriteString(field(idTransactionCurrency, currencyBRL))
	b.WriteString(field(idTransactionAmount, amount(cents)))
	b.WriteString(field(idCountryCode, countryBR))
	b.WriteString(field(idMerchantName, truncate(m.Name, 25)))
	b.WriteString(field(idMerchantCity, truncate(m.City, 15)))
	b.WriteString(field(idAdditionalData, additional))

	// CRC covers everything up to and including its own id and length.
	payload := b.String() + idCRC + "04"
	return payload + fmt.Sprintf("%04X", crc16(payload))
}

// crc16 is CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF) as required by the
// EMV QR spec.
func crc16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// QRCodePNG renders the payload as a PNG image.
func QRCodePNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, 256)
}
