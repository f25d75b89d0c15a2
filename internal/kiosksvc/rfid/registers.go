package rfid

// MFRC522 register addresses used by the driver.
const (
	RegCommand    uint8 = 0x01
	RegComIrq     uint8 = 0x04
	RegDivIrq     uint8 = 0x05
	RegError      uint8 = 0x06
	RegStatus     uint8 = 0x07
	RegFIFOData   uint8 = 0x09
	RegFIFOLevel  uint8 = 0x0A
	RegControl    uint8 = 0x0C
	RegBitFraming uint8 = 0x0D
	RegMode       uint8 = 0x11
	RegTxControl  uint8 = 0x14
	RegTxASK      uint8 = 0x15
	RegTMode      uint8 = 0x2A
	RegTPrescaler uint8 = 0x2B
	RegTReloadL   uint8 = 0x2C
	RegTReloadH   uint8 = 0x2D
)

// MFRC522 command opcodes.
const (
	CmdIdle       uint8 = 0x00
	CmdTransceive uint8 = 0x0C
	CmdSoftReset  uint8 = 0x0F
)

// PICC (card side) commands.
const (
	PiccReqIdle  uint8 = 0x26 // REQA, short frame
	PiccAnticoll uint8 = 0x93 // anticollision cascade level 1
)

const (
	// nvbNoneValid tells the card no UID bits are confirmed yet.
	nvbNoneValid uint8 = 0x20

	// irqComplete is RxIRq|IdleIRq, either of which ends a transceive.
	irqComplete uint8 = 0x30

	// errAny is the RegError failure mask; any of these bits set means
	// the last transceive cannot be trusted.
	errAny uint8 = 0x1B

	// maxFIFOLen bounds how many bytes we drain from the FIFO per read.
	maxFIFOLen = 16

	// pollLimit bounds the completion wait on RegComIrq.
	pollLimit = 1000
)
