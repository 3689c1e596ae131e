// Package video is the narrow scanline-timing stub standing in for an
// external PPU: the real renderer is out of scope here. All the CPU core
// and the DMA controller need from "the PPU" is the VCOUNT register and
// two edge-triggered events, HBlank and VBlank, which the PPU would call
// on_hblank()/on_vblank() for. This package produces exactly those two
// events on the GBA's real timing (1232 cycles/scanline, 228
// scanlines/frame, 160 visible) without rendering a single pixel.
package video

const (
	CyclesPerScanline = 1232
	VisibleLines      = 160
	TotalLines        = 228
)

// Hooks receives the edge-triggered timing events. DMA's HBlank/VBlank
// triggers subscribe through this; the DISPSTAT status bits and the
// VBlank/HBlank IRQ lines are driven through the Scheduler's
// SetHBlankFlag/SetVBlankFlag instead.
type Hooks struct {
	OnHBlank func()
	OnVBlank func()
}

// Scheduler tracks scanline position purely by cycle count and fires Hooks
// at the documented boundaries.
type Scheduler struct {
	hooks       Hooks
	cycleInLine int
	line        int
	inHBlank    bool

	// SetVCount, if set, is called whenever the current scanline changes,
	// so the I/O register file's VCOUNT byte stays in sync without this
	// package importing package io.
	SetVCount func(line uint16)
	// SetHBlankFlag / SetVBlankFlag update DISPSTAT's status bits.
	SetHBlankFlag func(bool)
	SetVBlankFlag func(bool)
}

func New(hooks Hooks) *Scheduler {
	return &Scheduler{hooks: hooks}
}

// Tick advances the scanline clock by cycles system cycles, firing HBlank
// and VBlank edges as boundaries are crossed. Cycles are consumed one
// scanline-worth at a time so a caller advancing by more than one
// scanline's cycles still sees every edge.
func (s *Scheduler) Tick(cycles int) {
	for cycles > 0 {
		remaining := CyclesPerScanline - s.cycleInLine
		step := cycles
		if step > remaining {
			step = remaining
		}
		s.cycleInLine += step
		cycles -= step

		// HBlank covers roughly the last quarter of a scanline's cycles
		// on real hardware; GBATEK puts the draw portion at 960 cycles
		// and HBlank at the remaining 272.
		hblankNow := s.cycleInLine >= 960
		if hblankNow && !s.inHBlank && s.line < VisibleLines {
			s.inHBlank = true
			if s.SetHBlankFlag != nil {
				s.SetHBlankFlag(true)
			}
			if s.hooks.OnHBlank != nil {
				s.hooks.OnHBlank()
			}
		}

		if s.cycleInLine >= CyclesPerScanline {
			s.cycleInLine = 0
			s.inHBlank = false
			if s.SetHBlankFlag != nil {
				s.SetHBlankFlag(false)
			}
			s.line = (s.line + 1) % TotalLines
			if s.SetVCount != nil {
				s.SetVCount(uint16(s.line))
			}
			if s.line == VisibleLines {
				if s.SetVBlankFlag != nil {
					s.SetVBlankFlag(true)
				}
				if s.hooks.OnVBlank != nil {
					s.hooks.OnVBlank()
				}
			} else if s.line == 0 {
				if s.SetVBlankFlag != nil {
					s.SetVBlankFlag(false)
				}
			}
		}
	}
}

// Line reports the current scanline (0-227).
func (s *Scheduler) Line() int { return s.line }
