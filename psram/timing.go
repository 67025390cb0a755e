// Package psram models an asynchronous page-mode PSRAM part and the timing
// controller that drives it, cycle by cycle.
package psram

// The controller is clocked at 100 MHz, so one cycle is 10 ns. The cycle
// counts below are derived from the device datasheet: ~70 ns random access,
// ~20 ns page-mode access, and a 4 us limit on continuous chip-enable
// assertion (tCEM). Porting to a different clock requires recomputing all
// four constants.
const (
	// PageHitCycles is the length of a read that hits the open page.
	PageHitCycles = 2

	// WriteCycles is the length of a write access.
	WriteCycles = 6

	// RandomAccessCycles is the length of a full random read access. The
	// one-time configuration write at reset uses the same timing.
	RandomAccessCycles = 7

	// MaxEnableCycles is the number of cycles the chip-enable line may stay
	// continuously asserted before the controller forces a release. It is
	// chosen under the device's 400-cycle tCEM so that an access already in
	// flight when the deadline hits still completes in time. A page hit
	// accepted just under the deadline makes the worst-case continuous run
	// MaxEnableCycles + PageHitCycles, which the margin to tCEM absorbs.
	MaxEnableCycles = 379

	// deviceTCEMCycles is the absolute datasheet limit. The device model
	// reports a refresh violation beyond this point.
	deviceTCEMCycles = 400
)

// AddressBits is the width of the word address bus.
const AddressBits = 23

const addrMask = 1<<AddressBits - 1

// pageShift drops the in-page address bits. Addresses that only differ in
// the low 4 bits fall in the same 16-word page.
const pageShift = 4

// PageTag returns the page identity of a word address, address bits 22..4.
func PageTag(addr uint32) uint32 {
	return (addr & addrMask) >> pageShift
}

// ConfigPageMode is the bus-configuration-register pattern driven on the
// address bus during the CRE write at reset: bits 19..18 select the BCR and
// bit 7 enables page mode.
const ConfigPageMode uint32 = 0x80080
