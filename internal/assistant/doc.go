// Package assistant answers customer questions from a static response table
// and decides when a question needs a human.
//
// Classification is a pure function of the text: account and personal-data
// phrases escalate, otherwise the first topic whose keywords appear picks
// the answer and a secondary keyword match picks the branch within it.
// Suggestions come from an independent pass and need not relate to the
// chosen topic.
package assistant
