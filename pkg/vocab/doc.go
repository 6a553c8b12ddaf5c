// Package vocab persists the words a learner has encountered, each
// positioned in 3D space, and ingests them from finalized conversation
// utterances.
package vocab
