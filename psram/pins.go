package psram

// Pins is the controller-side view of the physical device interface for one
// cycle. The control lines are active low; a field is true when the line is
// electrically high, so true means deasserted for all the *n lines.
type Pins struct {
	// Addr is the 23-bit word address bus.
	Addr uint32

	// CEn is the chip-enable line. The device only responds while it is
	// low, and it must go high periodically so the device can refresh.
	CEn bool

	// OEn is the output-enable line. Low during reads.
	OEn bool

	// WEn is the write-strobe line. Low during writes; the device commits
	// the write on the rising edge.
	WEn bool

	// LBn and UBn select the low and high byte lanes.
	LBn bool
	UBn bool

	// ADVn is the address-valid line. This device does not use it; the
	// controller holds it high permanently.
	ADVn bool

	// CRE is the configuration-register-enable line, active high. Asserted
	// only during the one-time page-mode programming write after reset.
	CRE bool

	// DataDrive is true while the controller drives the DQ bus. The bus is
	// released whenever the device's output path may be on.
	DataDrive bool

	// DataOut is the value the controller drives on DQ while DataDrive is
	// set.
	DataOut uint16
}

// inactivePins returns the safe reset levels: everything deasserted and the
// DQ bus released.
func inactivePins() Pins {
	return Pins{
		CEn:  true,
		OEn:  true,
		WEn:  true,
		LBn:  true,
		UBn:  true,
		ADVn: true,
	}
}
