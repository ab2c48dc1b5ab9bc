package output

import (
	"io"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

// QRLevel is the error correction used for address codes. Addresses are
// short, so low correction keeps the code small.
const QRLevel = qr.L

// CanRenderQR reports whether w is a terminal.
func CanRenderQR(w io.Writer) bool {
	return isTerminal(w)
}

// RenderQR draws data as a compact QR code on a terminal. Non-terminal
// writers receive nothing.
func RenderQR(w io.Writer, data string) {
	if !CanRenderQR(w) {
		return
	}
	qrterminal.GenerateWithConfig(data, qrterminal.Config{
		Level:          QRLevel,
		Writer:         w,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
}

// QRText renders data as a plain-text QR code, two characters per module,
// for output that is not a terminal.
func QRText(data string) (string, error) {
	code, err := qr.Encode(data, QRLevel)
	if err != nil {
		return "", err
	}

	const quiet = 2
	var sb strings.Builder
	for y := -quiet; y < code.Size+quiet; y++ {
		for x := -quiet; x < code.Size+quiet; x++ {
			if code.Black(x, y) {
				sb.WriteString("██")
			} else {
				sb.WriteString("  ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
