package chord

import "fmt"

type template struct {
	symbol    string
	intervals []int
}

// Ordered by preference when a pitch-class set admits several readings.
var templates = []template{
	{"M", []int{0, 4, 7}},
	{"m", []int{0, 3, 7}},
	{"7", []int{0, 4, 7, 10}},
	{"maj7", []int{0, 4, 7, 11}},
	{"m7", []int{0, 3, 7, 10}},
	{"dim", []int{0, 3, 6}},
	{"aug", []int{0, 4, 8}},
	{"sus4", []int{0, 5, 7}},
	{"sus2", []int{0, 2, 7}},
	{"6", []int{0, 4, 7, 9}},
	{"m6", []int{0, 3, 7, 9}},
	{"m7b5", []int{0, 3, 6, 10}},
	{"dim7", []int{0, 3, 6, 9}},
	{"mMaj7", []int{0, 3, 7, 11}},
	{"7sus4", []int{0, 5, 7, 10}},
	{"add9", []int{0, 2, 4, 7}},
	{"5", []int{0, 7}},
}

// Templates is a reference Oracle that matches the pitch-class set exactly
// against common triad, sixth, seventh and suspended shapes. Labels follow
// the root+symbol convention ("CM", "Am7", "Bdim"); the root keeps the
// spelling it has in the input, so "Db F Ab" names "DbM".
type Templates struct{}

// Detect implements Oracle.
func (t Templates) Detect(names []string) ([]string, error) {
	var set [12]bool
	var spelled [12]string
	count := 0
	for _, name := range names {
		pc, ok := PitchClass(name)
		if !ok {
			return nil, fmt.Errorf("chord: unknown pitch class %q", name)
		}
		if !set[pc] {
			set[pc] = true
			spelled[pc] = name
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}

	var out []string
	for _, tpl := range templates {
		if len(tpl.intervals) != count {
			continue
		}
		for root := 0; root < 12; root++ {
			if !set[root] || !matches(set, root, tpl.intervals) {
				continue
			}
			out = append(out, spelled[root]+tpl.symbol)
		}
	}
	return out, nil
}

func matches(set [12]bool, root int, intervals []int) bool {
	for _, iv := range intervals {
		if !set[(root+iv)%12] {
			return false
		}
	}
	return true
}
