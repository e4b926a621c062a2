// Package sanitizer normalizes contact data before it is matched or stored.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input yields an empty string rather than an error.
//
//   - Phones: DigitsOnly is the matching key used by customer identity lookups;
//     NormalizePhone renders E.164 for display and storage.
//   - Emails: trimmed and lowercased.
//   - Free text: whitespace collapsed and trimmed; names also lose invisible runes.
package sanitizer
