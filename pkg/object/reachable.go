package object

import "fmt"

// WalkTree visits root and every object reachable from it, children after
// their parent tree. Each hash is visited once even when several paths
// reference it.
func (s *Store) WalkTree(root Hash, visit func(h Hash, kind Kind) error) error {
	seen := make(map[Hash]struct{})
	type item struct {
		hash Hash
		kind Kind
	}
	stack := []item{{root, KindTree}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[it.hash]; ok {
			continue
		}
		seen[it.hash] = struct{}{}

		if err := visit(it.hash, it.kind); err != nil {
			return err
		}
		if it.kind != KindTree {
			continue
		}
		tree, err := s.ReadTree(it.hash)
		if err != nil {
			return fmt.Errorf("walk tree %s: %w", it.hash, err)
		}
		// Push in reverse so entries are visited in name order.
		for i := len(tree.Entries) - 1; i >= 0; i-- {
			e := tree.Entries[i]
			stack = append(stack, item{e.Hash, e.Kind})
		}
	}
	return nil
}

// ReachableSet returns every object hash reachable from commit: the commit
// itself, its root tree and everything below it. Parents are not followed.
func (s *Store) ReachableSet(commit Hash) (map[Hash]struct{}, error) {
	c, err := s.ReadCommit(commit)
	if err != nil {
		return nil, fmt.Errorf("reachable set: %w", err)
	}
	out := map[Hash]struct{}{commit: {}}
	err = s.WalkTree(c.TreeHash, func(h Hash, _ Kind) error {
		out[h] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
