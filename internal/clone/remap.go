package clone

import "fmt"

// remapTable maps (kind, old identifier) to the fresh identifier minted
// during the copy. It lives for exactly one clone invocation and is never
// persisted. A lookup miss means a row was reached before its parent,
// which is a dependency-order bug, so misses abort the whole operation
// instead of being skipped.
type remapTable struct {
	ids map[Kind]map[uint]uint
}

func newRemapTable() *remapTable {
	return &remapTable{ids: make(map[Kind]map[uint]uint)}
}

// put records the new identifier assigned to (kind, oldID).
func (r *remapTable) put(kind Kind, oldID, newID uint) {
	byID, ok := r.ids[kind]
	if !ok {
		byID = make(map[uint]uint)
		r.ids[kind] = byID
	}
	byID[oldID] = newID
}

// lookup resolves the new identifier for (kind, oldID). A miss returns an
// integrity violation.
func (r *remapTable) lookup(kind Kind, oldID uint) (uint, error) {
	if newID, ok := r.ids[kind][oldID]; ok {
		return newID, nil
	}
	return 0, NewError(ErrIntegrity,
		fmt.Sprintf("no remapped identifier for %s %d", kind, oldID), nil)
}

// lookupOptional resolves a nullable foreign key: nil stays nil, a
// non-nil miss is as fatal as in lookup.
func (r *remapTable) lookupOptional(kind Kind, oldID *uint) (*uint, error) {
	if oldID == nil {
		return nil, nil
	}
	newID, err := r.lookup(kind, *oldID)
	if err != nil {
		return nil, err
	}
	return &newID, nil
}

// size reports the number of recorded mappings across all kinds.
func (r *remapTable) size() int {
	var n int
	for _, byID := range r.ids {
		n += len(byID)
	}
	return n
}
