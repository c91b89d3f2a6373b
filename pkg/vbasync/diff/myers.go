package diff

// Block is one edit: OldLen lines of the old text starting at OldStart are
// replaced by NewLen lines of the new text starting at NewStart.
type Block struct {
	OldStart int
	OldLen   int
	NewStart int
	NewLen   int
}

// Result is the outcome of comparing two texts.
type Result struct {
	Old    []string
	New    []string
	Blocks []Block
}

// Equal reports whether the texts compared equal.
func (r *Result) Equal() bool {
	return len(r.Blocks) == 0
}

// Compute compares old and new line by line using their tokenized keys.
func Compute(old, new string) *Result {
	res := &Result{Old: Lines(old), New: Lines(new)}
	res.Blocks = Blocks(Tokenize(res.Old), Tokenize(res.New))
	return res
}

// Blocks returns the edit blocks turning a into b, in order.
func Blocks(a, b []string) []Block {
	ids := map[string]int{}
	intern := func(lines []string) []int {
		out := make([]int, len(lines))
		for i, l := range lines {
			id, ok := ids[l]
			if !ok {
				id = len(ids)
				ids[l] = id
			}
			out[i] = id
		}
		return out
	}

	m := &myers{a: intern(a), b: intern(b)}
	m.modA = make([]bool, len(a))
	m.modB = make([]bool, len(b))
	max := len(a) + len(b) + 1
	m.down = make([]int, 2*max+2)
	m.up = make([]int, 2*max+2)
	m.lcs(0, len(a), 0, len(b))
	return m.blocks()
}

type myers struct {
	a, b       []int
	modA, modB []bool
	down, up   []int
}

// lcs marks the lines outside a longest common subsequence of
// a[lowerA:upperA] and b[lowerB:upperB].
func (m *myers) lcs(lowerA, upperA, lowerB, upperB int) {
	for lowerA < upperA && lowerB < upperB && m.a[lowerA] == m.b[lowerB] {
		lowerA++
		lowerB++
	}
	for lowerA < upperA && lowerB < upperB && m.a[upperA-1] == m.b[upperB-1] {
		upperA--
		upperB--
	}

	switch {
	case lowerA == upperA:
		for lowerB < upperB {
			m.modB[lowerB] = true
			lowerB++
		}
	case lowerB == upperB:
		for lowerA < upperA {
			m.modA[lowerA] = true
			lowerA++
		}
	default:
		x, y := m.middleSnake(lowerA, upperA, lowerB, upperB)
		m.lcs(lowerA, x, lowerB, y)
		m.lcs(x, upperA, y, upperB)
	}
}

// middleSnake runs the forward and reverse searches until their frontiers
// overlap and returns the point where they meet.
func (m *myers) middleSnake(lowerA, upperA, lowerB, upperB int) (int, int) {
	max := len(m.a) + len(m.b) + 1

	downK := lowerA - lowerB
	upK := upperA - upperB
	delta := (upperA - lowerA) - (upperB - lowerB)
	oddDelta := delta&1 != 0

	downOffset := max - downK
	upOffset := max - upK
	maxD := ((upperA - lowerA + upperB - lowerB) / 2) + 1

	m.down[downOffset+downK+1] = lowerA
	m.up[upOffset+upK-1] = upperA

	for d := 0; d <= maxD; d++ {
		for k := downK - d; k <= downK+d; k += 2 {
			var x int
			if k == downK-d {
				x = m.down[downOffset+k+1]
			} else {
				x = m.down[downOffset+k-1] + 1
				if k < downK+d && m.down[downOffset+k+1] >= x {
					x = m.down[downOffset+k+1]
				}
			}
			y := x - k
			for x < upperA && y < upperB && m.a[x] == m.b[y] {
				x++
				y++
			}
			m.down[downOffset+k] = x

			if oddDelta && upK-d < k && k < upK+d && m.up[upOffset+k] <= m.down[downOffset+k] {
				return m.down[downOffset+k], m.down[downOffset+k] - k
			}
		}

		for k := upK - d; k <= upK+d; k += 2 {
			var x int
			if k == upK+d {
				x = m.up[upOffset+k-1]
			} else {
				x = m.up[upOffset+k+1] - 1
				if k > upK-d && m.up[upOffset+k-1] < x {
					x = m.up[upOffset+k-1]
				}
			}
			y := x - k
			for x > lowerA && y > lowerB && m.a[x-1] == m.b[y-1] {
				x--
				y--
			}
			m.up[upOffset+k] = x

			if !oddDelta && downK-d <= k && k <= downK+d && m.up[upOffset+k] <= m.down[downOffset+k] {
				return m.down[downOffset+k], m.down[downOffset+k] - k
			}
		}
	}
	// Unreachable for well-formed ranges: the searches meet by maxD.
	panic("diff: middle snake not found")
}

func (m *myers) blocks() []Block {
	var out []Block
	na, nb := len(m.a), len(m.b)
	la, lb := 0, 0
	for la < na || lb < nb {
		if la < na && !m.modA[la] && lb < nb && !m.modB[lb] {
			la++
			lb++
			continue
		}
		sa, sb := la, lb
		for la < na && (lb >= nb || m.modA[la]) {
			la++
		}
		for lb < nb && (la >= na || m.modB[lb]) {
			lb++
		}
		if sa < la || sb < lb {
			out = append(out, Block{OldStart: sa, OldLen: la - sa, NewStart: sb, NewLen: lb - sb})
		}
	}
	return out
}
