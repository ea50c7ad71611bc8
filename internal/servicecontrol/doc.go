// Package servicecontrol defines the check and report records of a call
// and the client that transmits them.
//
// A check is sent before a call is served and decides whether the API key
// is valid and the consumer may call the service. A report is sent after
// the call and feeds usage, billing and logging. The records carry
// everything the backend needs, so a record is always fully populated even
// when parts of the call are unknown.
package servicecontrol
