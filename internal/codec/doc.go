// Package codec converts collections of records to and from their stored
// text form.
//
// Encode produces canonical JSON (see record.MarshalCanonical), so equal
// collections always encode to identical bytes.
//
// Decode is tolerant in the directions stored data actually varies:
//   - numeric ids (written by clients using timestamps as ids) become strings
//   - unknown fields are kept in each record's Extra bag
//   - optional fields may be absent or null
//
// and strict about shape: every element is checked against the CUE
// definition named by the record's Kind (see schema.cue). Only primary and
// foreign keys are required.
package codec
