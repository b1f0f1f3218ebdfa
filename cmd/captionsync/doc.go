// Command captionsync resolves, generates and serves multi-language
// captions for Bunny Stream videos.
//
// Subcommands cover one-off caption resolution and format conversion,
// transcript synthesis and translation, the signed playlist refresher and
// the HTTP server that hosts the live caption overlay.
package main
