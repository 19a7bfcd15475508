package chunks

// Neighbour bits, in the order the neighbours are examined.
const (
	MaskN uint8 = 1 << iota
	MaskE
	MaskS
	MaskW
)

// Bitsum returns the adjacency mask for pos: bit i is set when the i-th
// neighbour (north, east, south, west) holds a tile on layer.
func Bitsum(r Reader, pos TilePos, layer Layer) uint8 {
	var mask uint8
	for i, n := range pos.Neighbors() {
		if r.HasTile(n, layer) {
			mask |= 1 << i
		}
	}
	return mask
}

// SetMask overwrites the mask of the tile at pos. It reports false when
// there is no tile there.
func (s *Store) SetMask(pos TilePos, layer Layer, mask uint8) bool {
	key := s.geo.ChunkOf(pos)
	c, ok := s.chunks[key]
	if !ok {
		return false
	}
	rx, ry := s.geo.RelOf(pos)
	tiles := c.Tiles[layer]
	i, found := findTile(tiles, rx, ry)
	if !found {
		return false
	}
	if tiles[i].Mask != mask {
		tiles[i].Mask = mask
		s.markDirty(key)
	}
	return true
}

// CalculateBitsum recomputes and stores the mask of the tile at pos.
func (s *Store) CalculateBitsum(pos TilePos, layer Layer) (uint8, bool) {
	mask := Bitsum(s, pos, layer)
	if !s.SetMask(pos, layer, mask) {
		return 0, false
	}
	return mask, true
}

// AutoTile recomputes pos and the autotiled tiles in the ring around it.
// Tiles further out cannot change.
func (s *Store) AutoTile(pos TilePos, layer Layer) {
	s.CalculateBitsum(pos, layer)
	for _, n := range pos.Neighbors() {
		s.retile(n, layer)
	}
}

func (s *Store) retile(pos TilePos, layer Layer) {
	t, ok := s.Tile(pos, layer)
	if !ok || !t.Auto {
		return
	}
	s.CalculateBitsum(pos, layer)
}
