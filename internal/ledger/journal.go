package ledger

// Transactional is implemented by every state holder that joins an operation's transaction.
type Transactional interface {
	Begin()
	Commit()
	Rollback()
}

// Journal records undo steps for in-memory mutations made inside a transaction.
// Outside a transaction mutations are applied without being recorded.
type Journal struct {
	undo []func()
	intx bool
}

func (j *Journal) Begin() {
	j.intx = true
	j.undo = j.undo[:0]
}

func (j *Journal) Commit() {
	j.intx = false
	j.undo = j.undo[:0]
}

// Rollback replays the undo steps newest first.
func (j *Journal) Rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.intx = false
	j.undo = j.undo[:0]
}

// InTx reports whether a transaction is open.
func (j *Journal) InTx() bool {
	return j.intx
}

// Record adds an undo step.
func (j *Journal) Record(fn func()) {
	if j.intx {
		j.undo = append(j.undo, fn)
	}
}

// Set writes m[k] = v and records how to restore the previous value.
func Set[K comparable, V any](j *Journal, m map[K]V, k K, v V) {
	old, ok := m[k]
	j.Record(func() {
		if ok {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

// Delete removes m[k] and records how to restore it.
func Delete[K comparable, V any](j *Journal, m map[K]V, k K) {
	old, ok := m[k]
	if !ok {
		return
	}
	j.Record(func() { m[k] = old })
	delete(m, k)
}

// Assign writes *p = v and records how to restore the previous value.
func Assign[V any](j *Journal, p *V, v V) {
	old := *p
	j.Record(func() { *p = old })
	*p = v
}
