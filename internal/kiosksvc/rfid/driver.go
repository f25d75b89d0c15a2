package rfid

import (
	"errors"
	"fmt"
	"time"

	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrTimeout means the completion poll exhausted its budget.
	ErrTimeout = errors.New("rfid: transceive timeout")
	// ErrProtocol means the chip flagged the exchange in its error register.
	ErrProtocol = errors.New("rfid: protocol error")
)

// Driver speaks the RC522 command set over a register Bus. It never panics
// on a bad exchange; everything degrades to an error or a false presence.
type Driver struct {
	bus   Bus
	rst   ResetPin
	delay func(time.Duration)
}

func NewDriver(bus Bus, rst ResetPin) *Driver {
	if rst == nil {
		rst = noReset{}
	}
	return &Driver{
		bus:   bus,
		rst:   rst,
		delay: time.Sleep,
	}
}

// readRegister issues a 2-byte read frame. The address goes out with the
// high bit set; the register value comes back in byte 1 of the response
// frame, not byte 0. Getting this wrong reads stale garbage, silently.
func (d *Driver) readRegister(reg uint8) (uint8, error) {
	tx := []byte{((reg << 1) & 0x7E) | 0x80, 0x00}
	rx, err := d.bus.Transfer(tx)
	if err != nil {
		return 0, fmt.Errorf("read reg 0x%02X: %v", reg, err)
	}
	if len(rx) < 2 {
		return 0, fmt.Errorf("read reg 0x%02X: short response (%d bytes)", reg, len(rx))
	}
	return rx[1], nil
}

func (d *Driver) writeRegister(reg, value uint8) error {
	tx := []byte{(reg << 1) & 0x7E, value}
	if _, err := d.bus.Transfer(tx); err != nil {
		return fmt.Errorf("write reg 0x%02X: %v", reg, err)
	}
	return nil
}

func (d *Driver) setBitMask(reg, mask uint8) error {
	v, err := d.readRegister(reg)
	if err != nil {
		return err
	}
	return d.writeRegister(reg, v|mask)
}

func (d *Driver) clearBitMask(reg, mask uint8) error {
	v, err := d.readRegister(reg)
	if err != nil {
		return err
	}
	return d.writeRegister(reg, v&^mask)
}

// Reset pulses the hardware reset line, soft-resets the chip and reprograms
// the timer and modulation registers the driver depends on.
func (d *Driver) Reset() error {
	d.rst.Set(false)
	d.delay(10 * time.Millisecond)
	d.rst.Set(true)
	d.delay(50 * time.Millisecond)

	if err := d.writeRegister(RegCommand, CmdSoftReset); err != nil {
		return err
	}
	d.delay(50 * time.Millisecond)

	// Timer: auto start after transmission, ~25ms timeout.
	setup := []struct{ reg, val uint8 }{
		{RegTMode, 0x8D},
		{RegTPrescaler, 0x3E},
		{RegTReloadL, 30},
		{RegTReloadH, 0},
		{RegTxASK, 0x40}, // force 100% ASK
		{RegMode, 0x3D},  // CRC preset 0x6363
	}
	for _, s := range setup {
		if err := d.writeRegister(s.reg, s.val); err != nil {
			return err
		}
	}

	return d.antennaOn()
}

// antennaOn enables both TX drivers, writing only when they are not already
// enabled so repeated resets do not thrash the register.
func (d *Driver) antennaOn() error {
	v, err := d.readRegister(RegTxControl)
	if err != nil {
		return err
	}
	if v&0x03 != 0x03 {
		return d.setBitMask(RegTxControl, 0x03)
	}
	return nil
}

// transceive flushes the FIFO, loads data, runs the Transceive command and
// waits for completion within the poll budget.
func (d *Driver) transceive(data []byte, bitFraming uint8) error {
	steps := []func() error{
		func() error { return d.writeRegister(RegBitFraming, bitFraming) },
		func() error { return d.writeRegister(RegComIrq, 0x7F) }, // clear all interrupt flags
		func() error { return d.writeRegister(RegCommand, CmdIdle) },
		func() error { return d.setBitMask(RegFIFOLevel, 0x80) }, // flush FIFO
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	for _, b := range data {
		if err := d.writeRegister(RegFIFOData, b); err != nil {
			return err
		}
	}

	if err := d.writeRegister(RegCommand, CmdTransceive); err != nil {
		return err
	}
	if err := d.setBitMask(RegBitFraming, 0x80); err != nil { // StartSend
		return err
	}

	completed := false
	for i := 0; i < pollLimit; i++ {
		irq, err := d.readRegister(RegComIrq)
		if err != nil {
			return err
		}
		if irq&irqComplete != 0 {
			completed = true
			break
		}
	}

	if err := d.clearBitMask(RegBitFraming, 0x80); err != nil {
		return err
	}

	if !completed {
		return ErrTimeout
	}

	errBits, err := d.readRegister(RegError)
	if err != nil {
		return err
	}
	if errBits&errAny != 0 {
		log.Debugf("rfid: error register 0x%02X after transceive", errBits)
		return ErrProtocol
	}
	return nil
}

// DetectPresence issues a REQA and reports whether any card answered.
// Safe to call in a tight poll loop; a negative answer is the normal case.
func (d *Driver) DetectPresence() bool {
	// REQA is a short frame: transmit only 7 bits of the last byte.
	err := d.transceive([]byte{PiccReqIdle}, 0x07)
	return err == nil
}

// ReadUID runs anticollision cascade level 1 and returns the UID bytes the
// card answered with.
func (d *Driver) ReadUID() (models.CardUID, error) {
	if err := d.transceive([]byte{PiccAnticoll, nvbNoneValid}, 0x00); err != nil {
		return nil, err
	}

	n, err := d.readRegister(RegFIFOLevel)
	if err != nil {
		return nil, err
	}
	if n > maxFIFOLen {
		n = maxFIFOLen
	}
	if n == 0 {
		return nil, ErrProtocol
	}

	uid := make(models.CardUID, 0, n)
	for i := uint8(0); i < n; i++ {
		b, err := d.readRegister(RegFIFOData)
		if err != nil {
			return nil, err
		}
		uid = append(uid, b)
	}
	return uid, nil
}
