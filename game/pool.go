package game

import "math/rand/v2"

// pool is a bag of cards drawn uniformly at random without replacement.
type pool[T any] struct {
	items []T
}

func newPool[T any](items []T) pool[T] {
	return pool[T]{items: items}
}

func (p *pool[T]) Len() int {
	return len(p.items)
}

func (p *pool[T]) drawRandom() (T, bool) {
	var zero T
	n := len(p.items)
	if n == 0 {
		return zero, false
	}
	i := rand.IntN(n)
	item := p.items[i]
	p.items[i] = p.items[n-1]
	p.items[n-1] = zero
	p.items = p.items[:n-1]
	return item, true
}
