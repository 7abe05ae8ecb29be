package cart

// Merge combines local and remote by identity-key quantity summation.
//
// Local items keep their position, price and title; a remote item with a
// matching key only adds its quantity. Remote-only items are appended in
// remote order. Items with Qty < 1 on either side are ignored. Neither
// input is modified.
func Merge(local, remote Snapshot) Snapshot {
	out := make(Snapshot, 0, len(local)+len(remote))
	index := make(map[Key]int, len(local)+len(remote))

	add := func(it Item) {
		if it.Qty < 1 {
			return
		}
		if i, ok := index[it.Key()]; ok {
			out[i].Qty += it.Qty
			return
		}
		index[it.Key()] = len(out)
		out = append(out, it.clone())
	}

	for _, it := range local {
		add(it)
	}
	for _, it := range remote {
		add(it)
	}
	return out
}
