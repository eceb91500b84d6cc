package traffic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The expected pairs of a 3x3x3 geometry with concentration 4 (terminal
// index before concentration scaling).
var transposePairsAllDims = map[int]int{
	0: 0, 1: 3, 2: 6, 3: 1, 4: 4, 5: 7, 6: 2,
	7: 5, 8: 8, 9: 9, 10: 12, 11: 15, 12: 10, 13: 13,
	14: 16, 15: 11, 16: 14, 17: 17, 18: 18, 19: 21, 20: 24,
	21: 19, 22: 22, 23: 25, 24: 20, 25: 23, 26: 26,
}

var transposePairsDims02 = map[int]int{
	0: 0, 1: 9, 2: 18, 3: 3, 4: 12, 5: 21, 6: 6,
	7: 15, 8: 24, 9: 1, 10: 10, 11: 19, 12: 4, 13: 13,
	14: 22, 15: 7, 16: 16, 17: 25, 18: 2, 19: 11, 20: 20,
	21: 5, 22: 14, 23: 23, 24: 8, 25: 17, 26: 26,
}

func checkTransposePairs(
	t *testing.T,
	enabled []bool,
	pairs map[int]int,
) {
	t.Helper()
	dims := []int{3, 3, 3}
	concentration := 4
	numTerminals := 4 * 3 * 3 * 3

	for iface := 0; iface < concentration; iface++ {
		for srcBase, dstBase := range pairs {
			src := srcBase*concentration + iface
			dst := dstBase*concentration + iface

			tp, err := NewDimTranspose(dims, concentration, enabled, src)
			require.NoError(t, err)

			for i := 0; i < 100; i++ {
				next := tp.NextDestination()
				require.Less(t, next, numTerminals)
				require.Equal(t, dst, next,
					"src %d should always map to %d", src, dst)
			}
		}
	}
}

func TestDimTransposeAllDimsEnabled(t *testing.T) {
	checkTransposePairs(t, nil, transposePairsAllDims)
}

func TestDimTransposeDims01(t *testing.T) {
	checkTransposePairs(t, []bool{true, true, false}, transposePairsAllDims)
}

func TestDimTransposeDims02(t *testing.T) {
	checkTransposePairs(t, []bool{true, false, true}, transposePairsDims02)
}

func TestDimTransposeRejectsUnequalSwappedDims(t *testing.T) {
	_, err := NewDimTranspose([]int{2, 3}, 1, nil, 0)
	assert.Error(t, err)
}

func TestDimTransposeRejectsMismatchedFlags(t *testing.T) {
	_, err := NewDimTranspose([]int{3, 3}, 1, []bool{true}, 0)
	assert.Error(t, err)
}
