// Package textutil provides the filename sanitization rules used when
// naming produced artifacts.
//
// Titles arrive from an upstream source with arbitrary Unicode, punctuation,
// and whitespace. Sanitization folds accented characters to their base form,
// strips everything that is not alphanumeric, collapses whitespace runs to
// single underscores, and caps the result at 50 characters so the same title
// always yields the same stable base name.
package textutil
