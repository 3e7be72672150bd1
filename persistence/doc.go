// Package persistence provides portable binary serialization for the index.
//
// Two layers are offered. Writer and Reader encode fixed-width little-endian
// integers and float slices for the embedded index stream, which carries no
// magic number or checksum so it can live inside a larger file. WriteContainer
// and ReadContainer wrap such a stream into a standalone artifact with a
// header, a CRC32C checksum and optional LZ4 or ZSTD compression.
package persistence
