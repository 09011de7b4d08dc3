// Package email sends transactional billing notices through Postmark, with
// a logging sender for development.
package email
