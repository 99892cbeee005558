// Package value models JavaScript values as observed by a traced program and
// encodes them as self-contained description graphs.
//
// A Graph is a root Node plus a heap of Obj records. Every distinct object
// gets exactly one heap slot, so shared references and cycles survive a round
// trip through Describe and Undescribe. Revival never runs code: functions
// and promises come back as inert shells and object classes are looked up in
// a Registry.
package value
