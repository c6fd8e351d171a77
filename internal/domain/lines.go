package domain

// A 3x3 grid is stored as a 9-bit mask, bit i being cell i in row-major order.
// The same masks describe cells inside a macro and macros inside the board.
const fullGrid uint16 = 0x1ff

var lines = [8]uint16{
	// rows
	0x007, 0x038, 0x1c0,
	// cols
	0x049, 0x092, 0x124,
	// diags
	0x111, 0x054,
}

// linesThrough[i] holds the lines containing cell i: four for the center,
// three for corners, two for edge centers.
var linesThrough [9][]uint16

func init() {
	for i := range linesThrough {
		for _, ln := range lines {
			if ln&(1<<i) != 0 {
				linesThrough[i] = append(linesThrough[i], ln)
			}
		}
	}
}

// wins reports whether idx, which was just set in mask, completes a line.
func wins(mask uint16, idx int) bool {
	for _, ln := range linesThrough[idx] {
		if mask&ln == ln {
			return true
		}
	}
	return false
}

// HasLine reports whether any of the 8 lines is fully set in mask.
func HasLine(mask uint16) bool {
	for _, ln := range lines {
		if mask&ln == ln {
			return true
		}
	}
	return false
}
