// Package cache persists the last successfully fetched configuration so a
// development workstation can start while the store is unreachable.
//
// A snapshot is kept per application name. The file implementation stores a
// single JSON document of the form:
//
//	{"<appName>": {"sec": "<base64 of the JSON configuration map>"}}
//
// The base64 step is an encoding, not encryption.
package cache
