package qr

import (
	"io"

	"github.com/mdp/qrterminal/v3"
	rscqr "rsc.io/qr"
)

// RenderTerminal draws the symbol for content to w using half-block
// characters, two modules per text row.
func RenderTerminal(w io.Writer, content string, level Level) {
	qrterminal.GenerateWithConfig(content, qrterminal.Config{
		Level:          terminalLevel(level),
		Writer:         w,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		QuietZone:      QuietZone,
	})
}

// qrterminal is built on rsc.io/qr and takes its levels directly.
func terminalLevel(l Level) rscqr.Level {
	return rscLevel(l)
}
