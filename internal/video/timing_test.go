package video

import "testing"

func TestHBlankFiresOnceAtCycle960(t *testing.T) {
	hblanks := 0
	s := New(Hooks{OnHBlank: func() { hblanks++ }})
	s.Tick(960)
	if hblanks != 1 {
		t.Fatalf("hblank fired %d times by cycle 960, want 1", hblanks)
	}
	s.Tick(1)
	if hblanks != 1 {
		t.Fatalf("hblank fired again mid-HBlank: count = %d, want still 1", hblanks)
	}
}

func TestVBlankFiresWhenEnteringLine160(t *testing.T) {
	vblanks := 0
	s := New(Hooks{OnVBlank: func() { vblanks++ }})
	s.Tick(CyclesPerScanline * VisibleLines)
	if vblanks != 1 {
		t.Fatalf("vblank fired %d times entering line 160, want 1", vblanks)
	}
	if s.Line() != VisibleLines {
		t.Fatalf("line = %d, want %d", s.Line(), VisibleLines)
	}
}

func TestLineWrapsAfterTotalLines(t *testing.T) {
	s := New(Hooks{})
	s.Tick(CyclesPerScanline * TotalLines)
	if s.Line() != 0 {
		t.Fatalf("line after a full frame = %d, want 0 (wrapped)", s.Line())
	}
}

func TestHBlankSuppressedDuringVBlankLines(t *testing.T) {
	hblanks := 0
	s := New(Hooks{OnHBlank: func() { hblanks++ }})
	s.Tick(CyclesPerScanline * VisibleLines) // now on the first VBlank line
	before := hblanks
	s.Tick(960) // cross the 960-cycle boundary on a VBlank line
	if hblanks != before {
		t.Fatalf("hblank fired on a VBlank line: count went from %d to %d", before, hblanks)
	}
}

func TestSetVCountTracksLineChanges(t *testing.T) {
	var lastLine uint16
	s := New(Hooks{})
	s.SetVCount = func(line uint16) { lastLine = line }
	s.Tick(CyclesPerScanline)
	if lastLine != 1 {
		t.Fatalf("SetVCount observed %d after one scanline, want 1", lastLine)
	}
}

func TestVBlankFlagClearsOnReturnToLine0(t *testing.T) {
	var flagAtLine0 bool
	flagSeen := false
	s := New(Hooks{})
	s.SetVBlankFlag = func(set bool) {
		if s.Line() == 0 {
			flagAtLine0 = set
			flagSeen = true
		}
	}
	s.Tick(CyclesPerScanline * TotalLines)
	if !flagSeen {
		t.Fatal("SetVBlankFlag was never observed at line 0")
	}
	if flagAtLine0 {
		t.Fatal("VBlank flag must be clear again once the frame wraps to line 0")
	}
}
