// Package metadata inspects and removes metadata from images, PDF files,
// and OPC documents such as DOCX.
//
// The extractors are deliberately shallow container walks: PNG chunks,
// JPEG marker segments, the PDF Info dictionary and XMP packet, and the
// docProps parts of an OPC zip. None of them pulls in a full format
// parser. Clear operations always write a new file and never touch the
// original.
package metadata
