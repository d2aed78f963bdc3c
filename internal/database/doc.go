// Package database opens the run-history database through gorm with
// driver selection (sqlite, mysql, postgres) and pool configuration.
package database
