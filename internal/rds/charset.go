package rds

// The RDS basic character set (EBU Latin) overlaps ASCII for 0x20..0x7E but
// places accented letters at its own code points. Anything we cannot map is
// replaced by a space, which every receiver renders harmlessly.
var charsetOverrides = map[rune]byte{
	'á': 0x80, 'à': 0x81, 'é': 0x82, 'è': 0x83,
	'í': 0x84, 'ì': 0x85, 'ó': 0x86, 'ò': 0x87,
	'ú': 0x88, 'ù': 0x89, 'Ñ': 0x8A, 'Ç': 0x8B,
	'ß': 0x8D, '¡': 0x8E,
	'â': 0x90, 'ä': 0x91, 'ê': 0x92, 'ë': 0x93,
	'î': 0x94, 'ï': 0x95, 'ô': 0x96, 'ö': 0x97,
	'û': 0x98, 'ü': 0x99, 'ñ': 0x9A, 'ç': 0x9B,
	'º': 0xBB, '°': 0xBB,
	'Á': 0xC1, 'À': 0xC2, 'É': 0xC3, 'È': 0xC4,
	'Í': 0xC5, 'Ì': 0xC6, 'Ó': 0xC7, 'Ò': 0xC8,
	'Ú': 0xC9, 'Ù': 0xCA,
	'Â': 0xD1, 'Ä': 0xD2, 'Ê': 0xD3, 'Ë': 0xD4,
	'Î': 0xD5, 'Ï': 0xD6, 'Ô': 0xD7, 'Ö': 0xD8,
	'Û': 0xD9, 'Ü': 0xDA,
}

// encodeChar maps one rune to its RDS byte.
func encodeChar(r rune) byte {
	if r >= 0x20 && r <= 0x7E {
		return byte(r)
	}
	if b, ok := charsetOverrides[r]; ok {
		return b
	}
	return 0x20
}

// fillString encodes text into the fixed-size field dst, truncating overlong
// input and space-padding the remainder.
func fillString(dst []byte, text string) {
	i := 0
	for _, r := range text {
		if i >= len(dst) {
			break
		}
		dst[i] = encodeChar(r)
		i++
	}
	for ; i < len(dst); i++ {
		dst[i] = 0x20
	}
}
