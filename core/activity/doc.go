// Package activity recovers a children's activity record from the free text
// a language model returns when asked for JSON.
//
// Models wrap the object in prose, label it with a json code fence, leave
// stray backticks around it, truncate it mid-array or echo the response schema
// instead of filling it in. [Recover] tries a fixed sequence of candidate
// substrings, parses each with encoding/json, then with jsonrepair, then after
// unwrapping {"type": ..., "value": ...} envelopes, and validates the result
// against the record's required keys. When nothing usable comes out it
// substitutes the fixed [Default] record, so callers always receive a valid
// activity. The [Outcome] tells the two cases apart.
//
// The package performs no I/O and holds no mutable state; a [Recoverer] is
// safe for concurrent use.
package activity
