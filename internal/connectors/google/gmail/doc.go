// Package gmail implements the mail provider on the Gmail API.
//
// Messages are listed with users.messages.list and fetched in full format,
// so the MIME tree arrives with base64url-encoded bodies. All calls share
// one rate limiter per provider and back off after 429 responses.
package gmail
