package regroup

import (
	"math"
	"slices"
)

// geomSpaceIndex writes step integer indexes between start and end, spaced
// evenly on a log scale and rounded half to even. Spacing is dense near start,
// or near end when reverse is set. The endpoints are always exact.
func geomSpaceIndex(base BaseLog, start, end, step int, reverse bool) []int {
	res := make([]int, step)
	if step == 1 {
		res[0] = start
		return res
	}

	startLog := base.Log(float32(start))
	endLog := base.Log(float32(end))
	diff := endLog - startLog
	step1 := float32(step - 1)
	for i := 0; i < step; i++ {
		x := base.Exp(startLog + float32(i)*diff/step1)
		index := i
		if reverse {
			x = float32(end) - (x - float32(start))
			index = step - 1 - i
		}
		res[index] = int(math.RoundToEven(float64(x)))
	}
	res[0] = start
	res[step-1] = end
	return res
}

// fixGeomSpaceIndex makes buf strictly increasing. Rounding collapses
// neighbouring indexes near the sparse end; the backward pass pushes
// duplicates down (never below zero) and the forward pass lifts whatever
// piled up at zero.
func fixGeomSpaceIndex(buf []int) {
	if len(buf) < 2 {
		return
	}
	prev := buf[len(buf)-1]
	for i := len(buf) - 2; i >= 0; i-- {
		cur := buf[i]
		if cur >= prev {
			cur = max(prev-1, 0)
			buf[i] = cur
		}
		prev = cur
	}

	prev = buf[0]
	for i := 1; i < len(buf); i++ {
		cur := buf[i]
		if cur <= prev {
			cur = min(prev+1, len(buf)-1)
			buf[i] = cur
		}
		prev = cur
	}
}

// fastRegression copies prices into dst and extrapolates the remaining slots
// using the mean relative step between consecutive prices. With reverse set
// the walk starts from the highest price and extends downwards; dst is
// returned in ascending order either way.
func fastRegression(prices []float64, reverse bool, dst []float64) {
	n := len(prices)
	at := func(i int) float64 {
		if reverse {
			return prices[n-1-i]
		}
		return prices[i]
	}

	var acc float64
	var count int
	for i := 1; i < n; i++ {
		if prev := at(i - 1); prev != 0 {
			acc += at(i)/prev - 1
			count++
		}
	}
	if count > 0 {
		acc /= float64(count)
	}

	for i := range dst {
		if i < n {
			dst[i] = at(i)
			continue
		}
		dst[i] = dst[i-1] * (1 + acc)
	}
	if reverse {
		slices.Reverse(dst)
	}
}
