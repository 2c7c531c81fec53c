// Package highlight classifies Python source into lexical categories.
//
// A RuleTable holds an ordered list of (pattern, category) rules; later rules
// repaint earlier ones where they overlap. A Highlighter applies the table to
// one block (line) at a time, carrying a BlockState across lines so that
// triple-quoted strings spanning several lines are painted as strings. The
// Scheduler reacts to edit notifications from a Document and re-highlights
// only the blocks an edit can affect, continuing downstream while block
// states keep changing.
package highlight
