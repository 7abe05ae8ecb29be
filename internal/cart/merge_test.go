package cart

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		local  func(t *testing.T) Snapshot
		remote func(t *testing.T) Snapshot
		want   []string // key:qty in order
	}{
		{
			name:   "guest items plus disjoint server item",
			local:  func(t *testing.T) Snapshot { return Snapshot{item(t, 1, "10", 1), item(t, 2, "5", 2)} },
			remote: func(t *testing.T) Snapshot { return Snapshot{item(t, 3, "7", 1)} },
			want:   []string{"1:1", "2:2", "3:1"},
		},
		{
			name:   "shared key sums quantity",
			local:  func(t *testing.T) Snapshot { return Snapshot{item(t, 1, "10", 2)} },
			remote: func(t *testing.T) Snapshot { return Snapshot{item(t, 1, "10", 3)} },
			want:   []string{"1:5"},
		},
		{
			name:   "empty local takes remote",
			local:  func(t *testing.T) Snapshot { return nil },
			remote: func(t *testing.T) Snapshot { return Snapshot{item(t, 4, "1", 1), item(t, 5, "1", 1)} },
			want:   []string{"4:1", "5:1"},
		},
		{
			name:   "empty remote keeps local",
			local:  func(t *testing.T) Snapshot { return Snapshot{item(t, 1, "10", 2)} },
			remote: func(t *testing.T) Snapshot { return Snapshot{} },
			want:   []string{"1:2"},
		},
		{
			name:   "non-positive quantities are ignored",
			local:  func(t *testing.T) Snapshot { return Snapshot{item(t, 1, "10", 0)} },
			remote: func(t *testing.T) Snapshot { return Snapshot{item(t, 2, "1", -1), item(t, 3, "1", 1)} },
			want:   []string{"3:1"},
		},
		{
			name:   "duplicate keys within one side fold",
			local:  func(t *testing.T) Snapshot { return Snapshot{item(t, 1, "10", 1), item(t, 1, "10", 1)} },
			remote: func(t *testing.T) Snapshot { return nil },
			want:   []string{"1:2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.local(t), tt.remote(t))
			keys := make([]string, len(got))
			for i, it := range got {
				keys[i] = fmt.Sprintf("%s:%d", it.Key(), it.Qty)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestMergeLocalWinsPriceAndTitle(t *testing.T) {
	local := Snapshot{newItem(product(t, 1, "10", "Tea"), 1)}
	remote := Snapshot{newItem(product(t, 1, "12", "Tea (server)"), 1)}

	got := Merge(local, remote)
	require.Len(t, got, 1)
	assert.Equal(t, "10", got[0].Price.Text('f'))
	assert.Equal(t, "Tea", got[0].Title)
	assert.Equal(t, 2, got[0].Qty)
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	local := Snapshot{item(t, 1, "10", 1)}
	remote := Snapshot{item(t, 1, "10", 4)}

	got := Merge(local, remote)
	got[0].Qty = 99

	assert.Equal(t, 1, local[0].Qty)
	assert.Equal(t, 4, remote[0].Qty)
}

func TestMergeIsNotIdempotent(t *testing.T) {
	local := Snapshot{item(t, 1, "10", 1)}
	remote := Snapshot{item(t, 1, "10", 1)}

	once := Merge(local, remote)
	twice := Merge(once, remote)
	assert.Equal(t, 2, once[0].Qty)
	assert.Equal(t, 3, twice[0].Qty)
}
