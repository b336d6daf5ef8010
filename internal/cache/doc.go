// Package cache stores synthesized audio between runs. DiskCache keeps
// clips on disk, compressed with zstd when that saves space and evicted
// least-recently-used first once the configured capacity is reached.
// TieredCache puts a MemoryCache in front of it so repeated scripts in one
// run skip the disk read.
package cache
