// Package expiry keeps the deadlines of every live ledger account in an AVL
// tree augmented with subtree counts and deadline sums, so the number and
// sum of deadlines beyond any cutoff can be read in logarithmic time.
//
// An Index is not safe for concurrent use; callers serialise access.
package expiry

import "github.com/holiman/uint256"

// Entry is a single account deadline held by the index.
type Entry struct {
	Account  string
	Deadline int64
}

// Index is an ordered set of account deadlines.
type Index struct {
	root     *node
	accounts map[string]int64
}

// New creates an empty index.
func New() *Index {
	return &Index{accounts: make(map[string]int64)}
}

// Len returns the number of accounts currently held.
func (idx *Index) Len() int {
	return len(idx.accounts)
}

// Deadline returns the deadline recorded for account, if any.
func (idx *Index) Deadline(account string) (int64, bool) {
	d, ok := idx.accounts[account]
	return d, ok
}

// Insert records deadline for account, replacing any previous entry.
func (idx *Index) Insert(account string, deadline int64) {
	if old, ok := idx.accounts[account]; ok {
		if old == deadline {
			return
		}
		idx.root = remove(idx.root, key{deadline: old, account: account})
	}
	idx.root = insert(idx.root, key{deadline: deadline, account: account})
	idx.accounts[account] = deadline
}

// Remove drops the entry for account. Absent accounts are ignored.
func (idx *Index) Remove(account string) {
	old, ok := idx.accounts[account]
	if !ok {
		return
	}
	idx.root = remove(idx.root, key{deadline: old, account: account})
	delete(idx.accounts, account)
}

// AggregateAfter returns the number of entries whose deadline is strictly
// greater than cutoff, together with the sum of those deadlines.
func (idx *Index) AggregateAfter(cutoff int64) (int, uint256.Int) {
	count := 0
	var sum uint256.Int
	for p := idx.root; p != nil; {
		if p.key.deadline > cutoff {
			// p and its whole right subtree are beyond the cutoff
			count += 1 + p.right.size()
			d := deadlineValue(p.key.deadline)
			sum.Add(&sum, &d)
			rs := p.right.total()
			sum.Add(&sum, &rs)
			p = p.left
		} else {
			p = p.right
		}
	}
	return count, sum
}

// Ascend walks the entries in deadline order until fn returns false.
func (idx *Index) Ascend(fn func(Entry) bool) {
	ascend(idx.root, fn)
}

func ascend(p *node, fn func(Entry) bool) bool {
	if p == nil {
		return true
	}
	if !ascend(p.left, fn) {
		return false
	}
	if !fn(Entry{Account: p.key.account, Deadline: p.key.deadline}) {
		return false
	}
	return ascend(p.right, fn)
}

// deadlines of live accounts are never negative
func deadlineValue(d int64) uint256.Int {
	var v uint256.Int
	if d > 0 {
		v.SetUint64(uint64(d))
	}
	return v
}
