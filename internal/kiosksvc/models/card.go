package models

import (
	"bytes"
	"fmt"
	"strings"
)

// CardUID is the identifier bytes a contactless card returns during
// anticollision, 4 to 10 bytes depending on card type.
type CardUID []byte

// Hex renders the full UID as uppercase hex, the format the ledger stores.
func (u CardUID) Hex() string {
	var sb strings.Builder
	for _, b := range u {
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// HexPrefix returns the 8-character hex form of the first 4 UID bytes.
// User lookup matches on this prefix because issued cards were registered
// from readers that do not all report the same UID length.
func (u CardUID) HexPrefix() string {
	n := len(u)
	if n > 4 {
		n = 4
	}
	return CardUID(u[:n]).Hex()
}

func (u CardUID) Equal(other CardUID) bool {
	return bytes.Equal(u, other)
}
