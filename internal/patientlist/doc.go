// Package patientlist holds the pure patient table logic: de-duplication,
// filtering, search, ordering and display values. Nothing here does I/O.
package patientlist
