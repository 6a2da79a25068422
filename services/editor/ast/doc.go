// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast implements the immutable document model of the block editor.
//
// A document is a tree of Expressions. Every Expression belongs to an
// ExpressionType that fixes its kind:
//
//   - Leaf: no children, carries a Value (an identifier, a number literal).
//   - Fixed: a fixed set of named slots declared by the type.
//   - Dynamic: an ordered list of slots with generated names.
//
// # Copy-on-Write
//
// Expressions are drafts until frozen. Freezing is deep and idempotent, and
// a frozen Expression never changes again. Edits never touch frozen nodes;
// instead ClonePath copies only the nodes along the edited path and shares
// everything else:
//
//	before:            after ApplyInsertion at [body, X]:
//
//	   Program            Program'          (clone)
//	   /     \            /     \
//	 Let    Block       Let    Block'       (Let shared, Block cloned)
//	          |                  |
//	        Stmts              Stmts'       (clone, new child appended)
//	         / \                / | \
//	        a   b              a  b  x      (a, b shared)
//
// Edits therefore cost O(depth) rather than O(tree size), and any holder of
// the previous Document keeps a fully intact tree.
//
// # Scopes
//
// Scopes live in a ScopeTable built once per Document. A Scope refers to its
// parent by ScopeID, so the ownership graph of the tree stays acyclic and
// shareable. The table rejects parent links that would form a cycle.
//
// # Thread Safety
//
// Frozen Expressions and Documents are safe for concurrent readers. Draft
// Expressions are owned by whoever created them and must not be shared until
// frozen.
package ast
