// Package services drives attachments through the scan lifecycle:
// scan, gate on the verdict, resolve, export, and record the outcome in the
// local journal.
package services
