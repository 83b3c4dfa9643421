package posinfo

// Iterator walks every position of a CubeData.
type Iterator struct {
	cd  *CubeData
	pos Pos
}

// NewIterator returns an iterator positioned before the first position.
func NewIterator(cd *CubeData) *Iterator {
	it := &Iterator{cd: cd}
	it.pos.ToPreStart()
	return it
}

// Next advances and returns the new position.
func (it *Iterator) Next() (BinID, bool) {
	if !it.cd.ToNext(&it.pos) {
		return BinID{}, false
	}
	return it.cd.BinID(it.pos), true
}

// Reset rewinds to before the first position.
func (it *Iterator) Reset() { it.pos.ToPreStart() }

// Pos returns the current cursor.
func (it *Iterator) Pos() Pos { return it.pos }
