package reports

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// SessionURL is the link printed on an attendance sheet.
func SessionURL(publicURL, eventID string) string {
	return fmt.Sprintf("%s/api/sessions/%s", publicURL, eventID)
}

// QRCodePNG encodes content as a PNG QR code.
func QRCodePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr code content is empty")
	}
	return qrcode.Encode(content, qrcode.Medium, qrSize)
}
