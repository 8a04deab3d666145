// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrpath implements entity paths: ordered sequences of path parts
// naming a node in the scene hierarchy, with prefix/subtree queries and a
// stable hash for indexing.
package rrpath

import (
	"strings"

	"github.com/zeebo/xxh3"
)

// Path is an ordered sequence of path parts. The zero value is the root
// (empty path).
type Path struct {
	parts []string
	hash  uint64
	ready bool
}

// Root returns the empty root path.
func Root() Path { return Path{} }

// New constructs a Path from ordered parts.
func New(parts ...string) Path {
	p := Path{parts: append([]string(nil), parts...)}
	p.hash, p.ready = p.computeHash(), true
	return p
}

// Parse splits a "/"-separated string into a Path. A leading "/" is
// ignored; empty segments are dropped.
func Parse(s string) Path {
	var parts []string
	for _, part := range strings.Split(s, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return Root()
	}
	return New(parts...)
}

func (p Path) computeHash() uint64 {
	h := xxh3.New()
	for _, part := range p.parts {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0}) // separator, avoids "ab"+"c" == "a"+"bc" collisions
	}
	return h.Sum64()
}

// Hash returns a stable 64-bit hash of the path, suitable for
// nohash-compatible map indexing.
func (p Path) Hash() uint64 {
	if !p.ready {
		return p.computeHash()
	}
	return p.hash
}

// Parts returns the path's ordered segments. Callers must not mutate the
// returned slice.
func (p Path) Parts() []string { return p.parts }

// Len returns the number of path parts (0 for the root).
func (p Path) Len() int { return len(p.parts) }

// IsRoot reports whether p is the empty root path.
func (p Path) IsRoot() bool { return len(p.parts) == 0 }

// String renders the canonical "/"-joined form, rooted at "/".
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

// Parent returns the path's parent and true, or the zero value and false
// if p is already the root.
func (p Path) Parent() (Path, bool) {
	if p.IsRoot() {
		return Path{}, false
	}
	return New(p.parts[:len(p.parts)-1]...), true
}

// Child appends a single part, returning the child path.
func (p Path) Child(part string) Path {
	return New(append(append([]string(nil), p.parts...), part)...)
}

// Equal reports structural equality.
func (p Path) Equal(o Path) bool {
	if len(p.parts) != len(o.parts) {
		return false
	}
	for i := range p.parts {
		if p.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict prefix of o (p != o).
func (p Path) IsAncestorOf(o Path) bool {
	if len(p.parts) >= len(o.parts) {
		return false
	}
	for i := range p.parts {
		if p.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// IsSelfOrAncestorOf reports whether p equals o or is a strict prefix of
// it. Used by the recursive-clear and subtree-query semantics.
func (p Path) IsSelfOrAncestorOf(o Path) bool {
	return p.Equal(o) || p.IsAncestorOf(o)
}

// Ancestors returns p's ancestors from the root down to (but not
// including) p itself.
func (p Path) Ancestors() []Path {
	out := make([]Path, 0, len(p.parts))
	for i := 0; i < len(p.parts); i++ {
		out = append(out, New(p.parts[:i]...))
	}
	return out
}

// Chain returns the root-to-p path chain inclusive of p itself: one entry
// per ancestor followed by p. Used by the transform resolver's
// root-to-entity composition walk (spec §4.7 step 1-2).
func (p Path) Chain() []Path {
	return append(p.Ancestors(), p)
}
