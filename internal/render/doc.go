// Package render serializes collections for people and for machines.
//
// JSON produces canonical JSON: object keys sorted by UTF-16 code units,
// strings NFC-normalized, no HTML escaping and no insignificant whitespace.
// Two collections holding the same data render to identical bytes, which is
// what the golden tests of the pipeline package compare.
//
// Text produces an aligned table; child rows are indented under their
// parent.
package render
