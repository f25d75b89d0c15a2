package rfid

import (
	"fmt"
	"sync"

	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
)

// SimBus emulates just enough of the RC522 register file for the driver to
// run without hardware: REQA answers while a virtual card is in the field,
// and anticollision returns that card's UID plus its check byte. It is used
// by cmd/kiosksvc when KIOSK_BUS=sim and by the driver tests.
type SimBus struct {
	mu sync.Mutex

	regs    [0x40]uint8
	fifo    []byte
	pending []byte // bytes loaded for the next transceive
	irq     uint8
	errBits uint8

	card models.CardUID

	// ForceErrorBits, when non-zero, is latched into the error register
	// after every transceive. Test hook.
	ForceErrorBits uint8
	// Mute suppresses the completion interrupt so the driver times out.
	// Test hook.
	Mute bool
}

func NewSimBus() *SimBus {
	return &SimBus{}
}

// PresentCard puts a virtual card into the field until RemoveCard.
func (s *SimBus) PresentCard(uid models.CardUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.card = append(models.CardUID(nil), uid...)
}

func (s *SimBus) RemoveCard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.card = nil
}

func (s *SimBus) Transfer(tx []byte) ([]byte, error) {
	if len(tx) != 2 {
		return nil, fmt.Errorf("simbus: frame must be 2 bytes, got %d", len(tx))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg := (tx[0] & 0x7E) >> 1
	if tx[0]&0x80 != 0 {
		return []byte{0x00, s.read(reg)}, nil
	}
	s.write(reg, tx[1])
	return []byte{0x00, 0x00}, nil
}

func (s *SimBus) read(reg uint8) uint8 {
	switch reg {
	case RegComIrq:
		return s.irq
	case RegError:
		return s.errBits
	case RegFIFOLevel:
		return uint8(len(s.fifo))
	case RegFIFOData:
		if len(s.fifo) == 0 {
			return 0
		}
		b := s.fifo[0]
		s.fifo = s.fifo[1:]
		return b
	default:
		return s.regs[reg]
	}
}

func (s *SimBus) write(reg, value uint8) {
	switch reg {
	case RegComIrq:
		s.irq &^= value &^ 0x80
	case RegFIFOLevel:
		if value&0x80 != 0 { // FlushBuffer
			s.fifo = nil
			s.pending = nil
		}
	case RegFIFOData:
		s.pending = append(s.pending, value)
	case RegBitFraming:
		prev := s.regs[reg]
		s.regs[reg] = value
		// StartSend rising edge kicks off the loaded command.
		if value&0x80 != 0 && prev&0x80 == 0 && s.regs[RegCommand] == CmdTransceive {
			s.execute()
		}
	case RegCommand:
		s.regs[reg] = value
		if value == CmdSoftReset {
			s.fifo = nil
			s.pending = nil
			s.irq = 0
			s.errBits = 0
		}
	default:
		s.regs[reg] = value
	}
}

func (s *SimBus) execute() {
	defer func() { s.pending = nil }()

	if s.Mute {
		return
	}
	if s.ForceErrorBits != 0 {
		s.errBits = s.ForceErrorBits
		s.irq |= irqComplete
		return
	}
	s.errBits = 0

	if len(s.pending) == 0 || s.card == nil {
		// No card in the field: the timer expires with nothing received.
		return
	}

	switch s.pending[0] {
	case PiccReqIdle:
		s.fifo = []byte{0x04, 0x00} // ATQA
		s.irq |= irqComplete
	case PiccAnticoll:
		uid := append([]byte(nil), s.card...)
		s.fifo = append(uid, bcc(uid))
		s.irq |= irqComplete
	}
}

// bcc is the anticollision check byte: XOR of the UID bytes.
func bcc(uid []byte) byte {
	var x byte
	for _, b := range uid {
		x ^= b
	}
	return x
}
