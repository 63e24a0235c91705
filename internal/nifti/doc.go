// Package nifti reads and writes single-file NIfTI-1 images.
//
// Supported on read: the "n+1" magic in either byte order, optional gzip
// compression (detected from the stream), the integer and real datatypes
// 2, 4, 8, 16, 64, 256, 512, 768, 1024 and 1280, header extensions
// (skipped via vox_offset), and scl_slope/scl_inter scaling.
//
// Writes are little-endian with vox_offset 352 and no extensions. A path
// ending in ".gz" is gzip-compressed. The file is written to a temporary
// sibling and renamed into place, so a failed write leaves no output.
//
// Two-file (.hdr/.img) pairs, NIfTI-2 and complex or RGB datatypes are not
// supported.
package nifti
