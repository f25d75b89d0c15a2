package rfid

// Bus is the half-duplex register bus the RC522 hangs off. Transfer clocks
// tx out and returns exactly len(tx) bytes read back in the same exchange.
// The driver owns the frame encoding; a Bus implementation only moves bytes.
type Bus interface {
	Transfer(tx []byte) ([]byte, error)
}

// ResetPin drives the chip's hardware reset line.
type ResetPin interface {
	Set(high bool)
}

// noReset is used when the board ties RST high permanently.
type noReset struct{}

func (noReset) Set(bool) {}
