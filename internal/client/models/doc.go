// Package models converts Matrix event content into media descriptors and
// defines the records kept in the local scan journal.
package models
