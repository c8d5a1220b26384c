// Package rds builds protocol-correct RDS groups and modulates them onto the
// 57 kHz subcarrier of an FM multiplex signal.
package rds

import "time"

const (
	// SampleRate is the internal rate every sample-producing method runs at.
	SampleRate = 228000
	// SamplesPerBit pins the bit clock to 1187.5 bit/s (57 kHz / 48).
	SamplesPerBit = 192

	psLength    = 8
	rtLength    = 64
	groupBlocks = 4
	blockBits   = 16
	crcBits     = 10
	crcPoly     = 0x1B9 // x^10+x^8+x^7+x^5+x^4+x^3+1, degree bit implicit

	// BitsPerGroup is the length of one group on the wire: four blocks of
	// 16 information bits plus a 10-bit check word each.
	BitsPerGroup = groupBlocks * (blockBits + crcBits)

	// afFillerWord goes into block C of a 0A group when no alternate
	// frequency list is configured.
	afFillerWord = 0xCDCD
)

// offsetWords are the per-block-position words XORed into each check word so
// receivers can detect block boundaries. Order: A, B, C, D.
var offsetWords = [groupBlocks]uint16{0x0FC, 0x198, 0x168, 0x1B4}

// GroupType identifies an RDS group type the scheduler can emit. Only the
// "A" variants are produced.
type GroupType uint8

const (
	Group0A GroupType = 0 // PS name, AF, flags
	Group2A GroupType = 2 // RadioText
	Group4A GroupType = 4 // Clock-Time
)

// stationParams is the encoder's working copy of the station configuration.
// It is only ever touched between groups, so every group is built from a
// single consistent version.
type stationParams struct {
	pi        uint16
	tp        bool
	ta        bool
	pty       uint8
	ms        bool
	di        uint8
	ab        bool
	abAuto    bool
	ctEnabled bool
	afStream  []byte
	ps        [psLength]byte
	rt        [rtLength]byte
}

// Encoder produces 104-bit RDS groups from station data and a round-robin
// cursor over group types. It never fails: invalid configuration is rejected
// upstream at the config boundary, and every reachable state here encodes to
// a valid group.
type Encoder struct {
	params stationParams

	// sequencing cursors
	psSegment  int // which PS character pair (0..3) the next 0A group carries
	rtSegment  int // which RT character quad (0..15) the next 2A group carries
	afPos      int
	cycle      []GroupType
	cycleIndex int

	// clock-time emission
	lastMinute       int
	ctIntervalGroups int
	ctCounter        int

	// PS alternation
	psAlternates  []string
	psAltIndex    int
	psAltInterval int
	psAltCounter  int

	now func() time.Time
}

// NewEncoder returns an Encoder with the conventional defaults: MS=music,
// DI=stereo, automatic A/B toggling, clock-time enabled, and a group cycle
// of four 0A groups per 2A group.
func NewEncoder() *Encoder {
	e := &Encoder{
		cycle:      []GroupType{Group0A, Group0A, Group0A, Group0A, Group2A},
		lastMinute: -1,
		now:        time.Now,
	}
	e.params.ms = true
	e.params.di = 0b0001
	e.params.abAuto = true
	e.params.ctEnabled = true
	fillString(e.params.ps[:], "")
	fillString(e.params.rt[:], "")
	return e
}

func (e *Encoder) SetPI(pi uint16) { e.params.pi = pi }
func (e *Encoder) SetTP(tp bool)   { e.params.tp = tp }
func (e *Encoder) SetTA(ta bool)   { e.params.ta = ta }
func (e *Encoder) SetMS(ms bool)   { e.params.ms = ms }

func (e *Encoder) SetPTY(pty uint8) {
	if pty > 31 {
		pty = 31
	}
	e.params.pty = pty
}

func (e *Encoder) SetDI(di uint8) { e.params.di = di & 0x0F }

// SetPS replaces the programme service name. Overlong input is truncated and
// short input space-padded to the fixed eight characters.
func (e *Encoder) SetPS(ps string) { fillString(e.params.ps[:], ps) }

// SetRadioText replaces the RadioText message. When automatic A/B handling
// is on, the A/B flag flips only if the encoded text actually changed, so
// receivers clear their display exactly when the content is new.
func (e *Encoder) SetRadioText(rt string) {
	var next [rtLength]byte
	fillString(next[:], rt)
	if next != e.params.rt {
		if e.params.abAuto {
			e.params.ab = !e.params.ab
		}
		e.params.rt = next
	}
}

func (e *Encoder) SetAB(ab bool)        { e.params.ab = ab }
func (e *Encoder) SetABAuto(auto bool)  { e.params.abAuto = auto }
func (e *Encoder) SetCTEnabled(on bool) { e.params.ctEnabled = on }

// SetAFListMHz encodes the alternate frequency list. Frequencies outside the
// 87.6–107.9 MHz band are ignored; the retained codes are sorted, deduplicated
// and capped at 25 entries per the AF method-A coding. An empty result clears
// the list, which 0A groups then signal with the filler word.
func (e *Encoder) SetAFListMHz(freqs []float64) {
	codes := make([]byte, 0, len(freqs))
	for _, mhz := range freqs {
		if mhz < 87.6 || mhz > 107.9 {
			continue
		}
		code := int(mhz*10-876+0.5) + 1
		if code >= 1 && code <= 204 {
			codes = append(codes, byte(code))
		}
	}
	codes = sortedUnique(codes)

	if len(codes) == 0 {
		e.params.afStream = nil
		e.afPos = 0
		return
	}
	if len(codes) > 25 {
		codes = codes[:25]
	}
	stream := make([]byte, 0, len(codes)+2)
	stream = append(stream, 0xE0+byte(len(codes)))
	stream = append(stream, codes...)
	if len(stream)%2 != 0 {
		stream = append(stream, 0x00)
	}
	e.params.afStream = stream
	e.afPos = 0
}

// SetGroupMix rebuilds the scheduling table with the given counts per cycle.
// 0A and 2A are floored at one occurrence so PS and RT always keep flowing;
// 4A slots are optional on top of the minute-edge clock-time rule.
func (e *Encoder) SetGroupMix(count0A, count2A, count4A int) {
	if count0A < 1 {
		count0A = 1
	}
	if count2A < 1 {
		count2A = 1
	}
	cycle := make([]GroupType, 0, count0A+count2A+count4A)
	for i := 0; i < count0A; i++ {
		cycle = append(cycle, Group0A)
	}
	for i := 0; i < count2A; i++ {
		cycle = append(cycle, Group2A)
	}
	for i := 0; i < count4A; i++ {
		cycle = append(cycle, Group4A)
	}
	e.cycle = cycle
	e.cycleIndex = 0
}

// SetCTIntervalGroups forces a clock-time group every interval groups in
// addition to the minute-edge rule. Zero disables the override.
func (e *Encoder) SetCTIntervalGroups(interval int) {
	e.ctIntervalGroups = interval
	e.ctCounter = 0
}

// SetPSAlternates rotates through list as the PS name, advancing every
// intervalGroups groups. An empty list or zero interval disables rotation.
func (e *Encoder) SetPSAlternates(list []string, intervalGroups int) {
	e.psAlternates = list
	e.psAltInterval = intervalGroups
	e.psAltIndex = 0
	e.psAltCounter = 0
}

func sortedUnique(codes []byte) []byte {
	var seen [256]bool
	for _, c := range codes {
		seen[c] = true
	}
	out := make([]byte, 0, len(codes))
	for c := 0; c < 256; c++ {
		if seen[c] {
			out = append(out, byte(c))
		}
	}
	return out
}

// crc10 runs one 16-bit information word through the RDS generator
// polynomial, returning the 10-bit check word before offsetting.
func crc10(block uint16) uint16 {
	var crc uint16
	for i := 0; i < blockBits; i++ {
		bit := block&0x8000 != 0
		block <<= 1
		msb := (crc>>(crcBits-1))&1 != 0
		crc <<= 1
		if msb != bit {
			crc ^= crcPoly
		}
	}
	return crc & 0x3FF
}

// mjdEpoch is day zero of the Modified Julian Date scheme CT groups carry.
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

func (e *Encoder) fillCTGroup(blocks *[groupBlocks]uint16) {
	nowUTC := e.now().UTC()
	nowLocal := e.now()

	midnight := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	mjd := int(midnight.Sub(mjdEpoch).Hours() / 24)

	blocks[1] = uint16(Group4A)<<12 |
		boolBit(e.params.tp)<<10 |
		uint16(e.params.pty)<<5 |
		uint16(mjd>>15)
	blocks[2] = uint16(mjd<<1) | uint16(nowUTC.Hour())>>4
	blocks[3] = uint16(nowUTC.Hour()&0xF)<<12 | uint16(nowUTC.Minute())<<6

	_, offsetSeconds := nowLocal.Zone()
	offset := offsetSeconds / (30 * 60)
	if offset < 0 {
		blocks[3] |= 0x20
		offset = -offset
	}
	blocks[3] |= uint16(offset) & 0x1F
}

// ctDue reports whether a minute-edge clock-time group should preempt the
// regular cycle. It fires at most once per UTC minute and never when the
// time source is disabled.
func (e *Encoder) ctDue() bool {
	if !e.params.ctEnabled {
		return false
	}
	minute := e.now().UTC().Minute()
	if minute == e.lastMinute {
		return false
	}
	e.lastMinute = minute
	return true
}

// NextGroup writes the next 104 bits (one on-air group, checksums included)
// into dst and advances the sequencing cursors. dst must hold BitsPerGroup
// entries; each entry is 0 or 1.
func (e *Encoder) NextGroup(dst []byte) {
	blocks := [groupBlocks]uint16{e.params.pi, 0, 0, 0}

	if e.psAltInterval > 0 && len(e.psAlternates) > 0 {
		e.psAltCounter++
		if e.psAltCounter >= e.psAltInterval {
			e.psAltCounter = 0
			e.psAltIndex = (e.psAltIndex + 1) % len(e.psAlternates)
			e.SetPS(e.psAlternates[e.psAltIndex])
		}
	}

	sentCT := false
	if e.ctIntervalGroups > 0 && e.params.ctEnabled {
		e.ctCounter++
		if e.ctCounter >= e.ctIntervalGroups {
			e.ctCounter = 0
			e.fillCTGroup(&blocks)
			sentCT = true
		}
	}
	if !sentCT && e.ctDue() {
		e.fillCTGroup(&blocks)
		sentCT = true
	}

	if !sentCT {
		gt := Group0A
		if len(e.cycle) > 0 {
			gt = e.cycle[e.cycleIndex]
			e.cycleIndex = (e.cycleIndex + 1) % len(e.cycle)
		}
		if gt == Group4A && !e.params.ctEnabled {
			// A scheduled CT slot without a time source falls through to
			// basic data rather than going silent.
			gt = Group0A
		}

		switch gt {
		case Group2A:
			blocks[1] = uint16(Group2A)<<12 |
				boolBit(e.params.tp)<<10 |
				uint16(e.params.pty)<<5 |
				boolBit(e.params.ab)<<4 |
				uint16(e.rtSegment)
			p := e.rtSegment * 4
			blocks[2] = uint16(e.params.rt[p])<<8 | uint16(e.params.rt[p+1])
			blocks[3] = uint16(e.params.rt[p+2])<<8 | uint16(e.params.rt[p+3])
			e.rtSegment = (e.rtSegment + 1) % (rtLength / 4)

		case Group4A:
			e.fillCTGroup(&blocks)

		default: // Group0A
			diBit := (e.params.di >> (3 - e.psSegment)) & 0x01
			blocks[1] = uint16(Group0A)<<12 |
				boolBit(e.params.tp)<<10 |
				uint16(e.params.pty)<<5 |
				boolBit(e.params.ta)<<4 |
				boolBit(e.params.ms)<<3 |
				uint16(diBit)<<2 |
				uint16(e.psSegment)
			if len(e.params.afStream) == 0 {
				blocks[2] = afFillerWord
			} else {
				af1 := e.params.afStream[e.afPos%len(e.params.afStream)]
				af2 := e.params.afStream[(e.afPos+1)%len(e.params.afStream)]
				blocks[2] = uint16(af1)<<8 | uint16(af2)
				e.afPos = (e.afPos + 2) % len(e.params.afStream)
			}
			p := e.psSegment * 2
			blocks[3] = uint16(e.params.ps[p])<<8 | uint16(e.params.ps[p+1])
			e.psSegment = (e.psSegment + 1) % (psLength / 2)
		}
	}

	out := 0
	for i := 0; i < groupBlocks; i++ {
		block := blocks[i]
		check := crc10(block) ^ offsetWords[i]
		for b := 0; b < blockBits; b++ {
			dst[out] = byte(block >> (blockBits - 1) & 1)
			out++
			block <<= 1
		}
		for b := 0; b < crcBits; b++ {
			dst[out] = byte(check >> (crcBits - 1) & 1)
			out++
			check <<= 1
		}
	}
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
