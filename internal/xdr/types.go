// Package xdr provides generic XDR (External Data Representation) encoding and
// decoding utilities per RFC 4506.
//
// The network layer's NetworkImage handler uses it to build the payload the
// persistence layer stores: variable-length byte strings (unique node ids,
// domain ids, group masks) length-prefixed and 4-byte aligned, and
// fixed-width fields big-endian. It borrows this encoding rather than
// inventing its own, since it's already exactly what RFC 4506 describes.
//
// Key characteristics of XDR:
//   - Big-endian byte order for all multi-byte integers
//   - 4-byte alignment for all data types
//   - Variable-length data is preceded by a 4-byte length
//   - Strings and opaque data are padded to 4-byte boundaries
//
// This package contains only generic utilities with no dependencies on
// any other package in this module.
//
// Reference: RFC 4506 - XDR: External Data Representation Standard
// https://tools.ietf.org/html/rfc4506
package xdr
