// Package dtype converts trace samples between their in-memory float32 form
// and the sample types stored on disk.
//
// Every component of a dataset has one on-disk [Kind] and byte order, fixed
// when the dataset is created. Samples are always handed to callers as
// float32; integer kinds are rounded to nearest and clamped to the
// representable range on encode.
package dtype
