package classify

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// StratifiedSplit partitions sample indices into training and test sets so
// that every class keeps its share of the test set. The test set holds
// ceil(testSize·n) samples; per-class test counts are the proportional
// floors, with the remainder handed to the largest fractional parts. Every
// class keeps at least one training sample. Both index lists are sorted.
//
// The same labels, testSize and seed always produce the same split.
func StratifiedSplit(labels []int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must lie in (0, 1), got %g", testSize)
	}

	byClass := make(map[int][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]int, 0, len(byClass))
	for c, members := range byClass {
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("class %d has %d sample, need 2: %w", c, len(members), ErrNotEnoughSamples)
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	n, k := len(labels), len(classes)
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < k || n-nTest < k {
		return nil, nil, fmt.Errorf("%d samples cannot hold %d classes in both sets: %w", n, k, ErrNotEnoughSamples)
	}

	take := allocate(classes, byClass, n, nTest)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for _, c := range classes {
		members := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		test = append(test, members[:take[c]]...)
		train = append(train, members[take[c]:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// allocate decides how many samples of each class go to the test set
func allocate(classes []int, byClass map[int][]int, n, nTest int) map[int]int {
	type share struct {
		class int
		count int
		frac  float64
	}

	take := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	remaining := nTest
	for _, c := range classes {
		count := len(byClass[c])
		exact := float64(count) * float64(nTest) / float64(n)
		base := min(int(math.Floor(exact)), count-1)
		take[c] = base
		remaining -= base
		shares = append(shares, share{class: c, count: count, frac: exact - float64(base)})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].frac != shares[j].frac {
			return shares[i].frac > shares[j].frac
		}
		return shares[i].count > shares[j].count
	})

	// capacity is n-k ≥ nTest, so this terminates
	for i := 0; remaining > 0; i = (i + 1) % len(shares) {
		s := shares[i]
		if take[s.class] < s.count-1 {
			take[s.class]++
			remaining--
		}
	}
	return take
}
