package model

import (
	"encoding/json"
	"strings"
)

// SubTree identifies one top-level section of the Snapshot.
type SubTree uint8

const (
	SubTreeTelemetry SubTree = iota
	SubTreeAnalysis
	SubTreeStrategy
	SubTreeRecommendations
	SubTreeLiveTiming
	SubTreeStatus

	numSubTrees
)

var subTreeNames = [numSubTrees]string{
	SubTreeTelemetry:       "telemetry",
	SubTreeAnalysis:        "analysis",
	SubTreeStrategy:        "strategy",
	SubTreeRecommendations: "recommendations",
	SubTreeLiveTiming:      "live_timing",
	SubTreeStatus:          "status",
}

// String returns the wire name of the sub-tree.
func (s SubTree) String() string {
	if s >= numSubTrees {
		return "unknown"
	}
	return subTreeNames[s]
}

// ParseSubTree maps a wire name to its SubTree.
func ParseSubTree(name string) (SubTree, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range subTreeNames {
		if n == name {
			return SubTree(i), true
		}
	}
	return 0, false
}

// AllSubTrees returns every sub-tree in declaration order.
func AllSubTrees() []SubTree {
	out := make([]SubTree, 0, numSubTrees)
	for i := SubTree(0); i < numSubTrees; i++ {
		out = append(out, i)
	}
	return out
}

// SubTreeSet is a small set of sub-trees, used to report what an update touched.
type SubTreeSet uint8

// NewSubTreeSet builds a set from the given sub-trees.
func NewSubTreeSet(trees ...SubTree) SubTreeSet {
	var s SubTreeSet
	for _, t := range trees {
		s = s.With(t)
	}
	return s
}

// AllSubTreeSet contains every sub-tree.
func AllSubTreeSet() SubTreeSet {
	return NewSubTreeSet(AllSubTrees()...)
}

// Has reports whether t is in the set.
func (s SubTreeSet) Has(t SubTree) bool {
	return s&(1<<t) != 0
}

// With returns the set with t added.
func (s SubTreeSet) With(t SubTree) SubTreeSet {
	return s | 1<<t
}

// Union returns the union of both sets.
func (s SubTreeSet) Union(o SubTreeSet) SubTreeSet {
	return s | o
}

// Empty reports whether the set has no members.
func (s SubTreeSet) Empty() bool {
	return s == 0
}

// List returns the members in declaration order.
func (s SubTreeSet) List() []SubTree {
	var out []SubTree
	for _, t := range AllSubTrees() {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// String joins the member names with commas.
func (s SubTreeSet) String() string {
	names := make([]string, 0, numSubTrees)
	for _, t := range s.List() {
		names = append(names, t.String())
	}
	return strings.Join(names, ",")
}

// MarshalJSON encodes the set as a list of wire names.
func (s SubTreeSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, numSubTrees)
	for _, t := range s.List() {
		names = append(names, t.String())
	}
	return json.Marshal(names)
}
