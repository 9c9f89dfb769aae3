package labels

import (
	"bytes"
	"encoding/json"
	"image/png"

	"github.com/labeldesk/backend/internal/models"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type qrPayload struct {
	LabelID        string `json:"labelId"`
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
}

// RenderQR encodes the label's carrier and tracking number as a PNG QR code.
func RenderQR(l *models.Label) ([]byte, error) {
	data, err := json.Marshal(qrPayload{LabelID: l.ID, Carrier: l.Carrier, TrackingNumber: l.TrackingNumber})
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.New(string(data), qrcode.Medium)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(qrSize)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
