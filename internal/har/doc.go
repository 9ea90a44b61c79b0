// Package har models the subset of the HTTP Archive (HAR) format that
// harmirror consumes: log.entries with request URLs and response bodies,
// including the base64 encoding discriminator for binary content.
package har
