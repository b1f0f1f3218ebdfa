// Package bunny wraps the Bunny.net Stream API and the Bunny storage zone
// endpoint used for raw caption files.
//
// Every call returns a services.Result so callers handle NotFound and
// VendorError explicitly. The storage endpoint is unreliable about status
// codes (missing objects can come back as 200 with an HTML or JSON body), so
// Storage.Fetch reports the body as-is and leaves content validation to the
// caller.
package bunny
