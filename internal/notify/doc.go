// Package notify delivers the report archive by email.
//
// Messages are built with go-mail and sent through an authenticated relay.
// The connection is always upgraded with STARTTLS; a relay that does not
// offer it is treated as an error rather than sending in clear text.
// Credentials are mandatory and checked before any connection is made.
package notify
