package expiry

import "github.com/holiman/uint256"

// key orders by deadline, then by account id so equal deadlines stay distinct
type key struct {
	deadline int64
	account  string
}

func (k key) compare(o key) int {
	switch {
	case k.deadline < o.deadline:
		return -1
	case k.deadline > o.deadline:
		return +1
	case k.account < o.account:
		return -1
	case k.account > o.account:
		return +1
	}
	return 0
}

type node struct {
	key    key
	left   *node
	right  *node
	height int
	count  int         // nodes in this subtree
	sum    uint256.Int // deadlines in this subtree
}

func newNode(k key) *node {
	n := &node{key: k, height: 1, count: 1}
	n.sum = deadlineValue(k.deadline)
	return n
}

func (p *node) size() int {
	if p == nil {
		return 0
	}
	return p.count
}

func (p *node) total() uint256.Int {
	if p == nil {
		return uint256.Int{}
	}
	return p.sum
}

func (p *node) h() int {
	if p == nil {
		return 0
	}
	return p.height
}

// recompute height and aggregates from the children
func (p *node) update() {
	lh, rh := p.left.h(), p.right.h()
	if lh > rh {
		p.height = lh + 1
	} else {
		p.height = rh + 1
	}
	p.count = 1 + p.left.size() + p.right.size()
	p.sum = deadlineValue(p.key.deadline)
	l, r := p.left.total(), p.right.total()
	p.sum.Add(&p.sum, &l)
	p.sum.Add(&p.sum, &r)
}

func (p *node) balance() int {
	return p.right.h() - p.left.h()
}

func rotateLeft(p *node) *node {
	p1 := p.right
	p.right = p1.left
	p1.left = p
	p.update()
	p1.update()
	return p1
}

func rotateRight(p *node) *node {
	p1 := p.left
	p.left = p1.right
	p1.right = p
	p.update()
	p1.update()
	return p1
}

func rebalance(p *node) *node {
	p.update()
	switch b := p.balance(); {
	case b < -1:
		if p.left.balance() > 0 {
			// double LR rotation
			p.left = rotateLeft(p.left)
		}
		return rotateRight(p)
	case b > 1:
		if p.right.balance() < 0 {
			// double RL rotation
			p.right = rotateRight(p.right)
		}
		return rotateLeft(p)
	}
	return p
}

func insert(p *node, k key) *node {
	if p == nil {
		return newNode(k)
	}
	switch p.key.compare(k) {
	case +1: // p.key > k
		p.left = insert(p.left, k)
	case -1: // p.key < k
		p.right = insert(p.right, k)
	default:
		return p
	}
	return rebalance(p)
}

func remove(p *node, k key) *node {
	if p == nil {
		return nil
	}
	switch p.key.compare(k) {
	case +1:
		p.left = remove(p.left, k)
	case -1:
		p.right = remove(p.right, k)
	default:
		if p.left == nil {
			return p.right
		}
		if p.right == nil {
			return p.left
		}
		// replace with the lowest node of the right subtree
		successor := p.right
		for successor.left != nil {
			successor = successor.left
		}
		p.key = successor.key
		p.right = remove(p.right, successor.key)
	}
	return rebalance(p)
}
